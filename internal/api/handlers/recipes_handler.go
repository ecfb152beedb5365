package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/recipe-studio/catalogue/internal/api/middleware"
	"github.com/recipe-studio/catalogue/internal/api/types"
	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/internal/services"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
	"github.com/recipe-studio/catalogue/pkg/utils"
)

type RecipesHandler struct {
	recipes        services.RecipeService
	images         services.ImageService
	validate       Validator
	maxUploadBytes int64
}

func NewRecipesHandler(recipes services.RecipeService, images services.ImageService, v Validator, maxUploadBytes int64) *RecipesHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &RecipesHandler{recipes: recipes, images: images, validate: v, maxUploadBytes: maxUploadBytes}
}

// List supports ?tags=1,2&ingredients=3 filters; each present list must
// match at least one label of the recipe.
func (h *RecipesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fields := map[string]string{}
	tagIDs, err := utils.ParseIDList(q.Get("tags"))
	if err != nil {
		fields["tags"] = "must be a comma separated list of ids"
	}
	ingredientIDs, err := utils.ParseIDList(q.Get("ingredients"))
	if err != nil {
		fields["ingredients"] = "must be a comma separated list of ids"
	}
	if len(fields) > 0 {
		writeError(w, r, appErr.Validation("invalid filter", fields))
		return
	}

	page, size := pagination(r)
	items, total, err := h.recipes.ListRecipes(r.Context(), middleware.GetUserID(r.Context()), &services.RecipeFilters{
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
		Page:          page,
		PageSize:      size,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]types.RecipeResponse, 0, len(items))
	for i := range items {
		out = append(out, types.NewRecipeResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: out, Meta: listMeta(r, page, size, total)})
}

func (h *RecipesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.RecipeRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	recipe, err := h.recipes.CreateRecipe(r.Context(), middleware.GetUserID(r.Context()), req.CreateInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeDetail(w, r, http.StatusCreated, recipe)
}

func (h *RecipesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recipe, err := h.recipes.GetRecipe(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeDetail(w, r, http.StatusOK, recipe)
}

// Update handles PUT: title, time_minutes and price are required.
func (h *RecipesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.RecipeRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	recipe, err := h.recipes.UpdateRecipe(r.Context(), id, middleware.GetUserID(r.Context()), req.UpdateInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeDetail(w, r, http.StatusOK, recipe)
}

// Patch handles PATCH: only supplied fields change.
func (h *RecipesHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.RecipePatchRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	recipe, err := h.recipes.UpdateRecipe(r.Context(), id, middleware.GetUserID(r.Context()), req.UpdateInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeDetail(w, r, http.StatusOK, recipe)
}

func (h *RecipesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.recipes.DeleteRecipe(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage accepts a multipart form with the file in the "image" field.
func (h *RecipesHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, appErr.Validation("image too large", map[string]string{"image": "file is too large"}))
			return
		}
		writeError(w, r, appErr.Validation("invalid upload", map[string]string{"image": "no file was submitted"}))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, appErr.Validation("invalid upload", map[string]string{"image": "no file was submitted"}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "read upload failed"))
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		writeError(w, r, appErr.Validation("image too large", map[string]string{"image": "file is too large"}))
		return
	}

	recipe, err := h.images.UploadImage(r.Context(), id, middleware.GetUserID(r.Context()), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := h.images.ImageURL(r.Context(), recipe.Image)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: types.ImageResponse{ID: recipe.ID, Image: url}})
}

func (h *RecipesHandler) writeDetail(w http.ResponseWriter, r *http.Request, status int, recipe *models.Recipe) {
	url, err := h.images.ImageURL(r.Context(), recipe.Image)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, types.APIResponse{Success: true, Data: types.NewRecipeDetailResponse(recipe, url)})
}
