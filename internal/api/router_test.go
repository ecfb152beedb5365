package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/recipe-studio/catalogue/internal/api/handlers"
	"github.com/recipe-studio/catalogue/internal/api/types"
	"github.com/recipe-studio/catalogue/internal/api/validators"
	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/internal/repository"
	"github.com/recipe-studio/catalogue/internal/services"
	"github.com/recipe-studio/catalogue/internal/storage"
	"github.com/recipe-studio/catalogue/internal/testutil"
	"github.com/recipe-studio/catalogue/pkg/database"
	"github.com/recipe-studio/catalogue/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Replace(zap.NewNop())
	os.Exit(m.Run())
}

var secret = []byte("router-test-secret")

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	auth    services.AuthService
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	tagRepo := repository.NewTagRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db)

	auth := services.NewAuthService(userRepo, secret, 0)
	recipes := services.NewRecipeService(repository.NewTransactor(db), recipeRepo, services.NewReconciler(tagRepo, ingredientRepo))
	images := services.NewImageService(recipeRepo, store, nil)
	v := validators.New()

	h := NewRouter(Dependencies{
		HMACSecret:         secret,
		Users:              auth,
		HealthHandler:      handlers.NewHealthHandler(func(ctx context.Context) error { return database.Ping(ctx, db) }),
		AuthHandler:        handlers.NewAuthHandler(auth, v),
		RecipesHandler:     handlers.NewRecipesHandler(recipes, images, v, 1<<20),
		TagsHandler:        handlers.NewLabelsHandler(services.NewLabelService(tagRepo), v, types.NewTagResponse),
		IngredientsHandler: handlers.NewLabelsHandler(services.NewLabelService(ingredientRepo), v, types.NewIngredientResponse),
		MediaRoot:          store.Root(),
	})
	return &testServer{t: t, db: db, auth: auth, handler: h}
}

// user registers an account and returns it with a valid access token.
func (s *testServer) user(email string) (*models.User, string) {
	s.t.Helper()
	ctx := context.Background()
	_, err := s.auth.Register(ctx, email, "testpass123", "Test Name")
	require.NoError(s.t, err)
	token, u, err := s.auth.Login(ctx, email, "testpass123")
	require.NoError(s.t, err)
	return u, token.AccessToken
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) upload(path, token string, data []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "upload.png")
	require.NoError(s.t, err)
	_, err = fw.Write(data)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *types.APIError `json:"error"`
	Meta    *types.Meta     `json:"meta"`
}

func parse(t *testing.T, rr *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func names(labels []types.LabelResponse) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.Name)
	}
	return out
}

func recipePayload() map[string]any {
	return map[string]any{
		"title":        "Thai prawn curry",
		"time_minutes": 30,
		"price":        "5.25",
	}
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "test@EXAMPLE.com", "password": "testpass123", "name": "Test Name",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created types.UserResponse
	parse(t, rr, &created)
	assert.Equal(t, "test@example.com", created.Email)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "test@example.com", "password": "testpass123", "name": "Other",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "short@example.com", "password": "pw", "name": "Test",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := parse(t, rr, nil)
	assert.Contains(t, env.Error.Fields, "password")

	rr = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "test@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "test@example.com", "password": "testpass123"})
	require.Equal(t, http.StatusOK, rr.Code)
	var tok types.TokenResponse
	parse(t, rr, &tok)
	assert.Equal(t, "Bearer", tok.TokenType)
	require.NotEmpty(t, tok.AccessToken)

	rr = s.do(http.MethodGet, "/api/v1/users/me", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me types.UserResponse
	parse(t, rr, &me)
	assert.Equal(t, created.ID, me.ID)

	rr = s.do(http.MethodPatch, "/api/v1/users/me", tok.AccessToken, map[string]any{"name": "Updated", "password": "newpass123"})
	require.Equal(t, http.StatusOK, rr.Code)
	parse(t, rr, &me)
	assert.Equal(t, "Updated", me.Name)

	rr = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "test@example.com", "password": "newpass123"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/users/me", "/api/v1/recipes", "/api/v1/tags", "/api/v1/ingredients"} {
		rr := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestDeletedUserTokenRejected(t *testing.T) {
	s := newTestServer(t)
	u, token := s.user("gone@example.com")
	require.NoError(t, s.db.Delete(&models.User{}, "id = ?", u.ID).Error)

	rr := s.do(http.MethodGet, "/api/v1/recipes", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateRecipeWithLabels(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user("user@example.com")

	body := recipePayload()
	body["tags"] = []map[string]string{{"name": "Thai"}, {"name": "Dinner"}}
	body["ingredients"] = []map[string]string{{"name": "Prawns"}, {"name": "Ginger"}}
	rr := s.do(http.MethodPost, "/api/v1/recipes", token, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var first types.RecipeDetailResponse
	parse(t, rr, &first)
	assert.Equal(t, "5.25", first.Price)
	assert.ElementsMatch(t, []string{"Thai", "Dinner"}, names(first.Tags))
	assert.ElementsMatch(t, []string{"Prawns", "Ginger"}, names(first.Ingredients))
	assert.Empty(t, first.Image)

	body = recipePayload()
	body["title"] = "Pad thai"
	body["tags"] = []map[string]string{{"name": "Thai"}, {"name": "Thai"}}
	rr = s.do(http.MethodPost, "/api/v1/recipes", token, body)
	require.Equal(t, http.StatusCreated, rr.Code)
	var second types.RecipeDetailResponse
	parse(t, rr, &second)
	require.Len(t, second.Tags, 1)

	var thaiID uint64
	for _, tag := range first.Tags {
		if tag.Name == "Thai" {
			thaiID = tag.ID
		}
	}
	assert.Equal(t, thaiID, second.Tags[0].ID)

	var count int64
	require.NoError(t, s.db.Model(&models.Tag{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCreateRecipeValidation(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user("user@example.com")

	rr := s.do(http.MethodPost, "/api/v1/recipes", token, map[string]any{"title": "No price", "time_minutes": 5})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := parse(t, rr, nil)
	assert.Contains(t, env.Error.Fields, "price")

	body := recipePayload()
	body["price"] = "1.234"
	rr = s.do(http.MethodPost, "/api/v1/recipes", token, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body = recipePayload()
	body["tags"] = []map[string]string{{"name": ""}}
	rr = s.do(http.MethodPost, "/api/v1/recipes", token, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodPost, "/api/v1/recipes", token, "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRecipeWrongValueTypesReportField(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user("user@example.com")
	recipe := testutil.CreateRecipe(t, s.db, owner)

	cases := []struct {
		field string
		value any
	}{
		{"price", "abc"},
		{"price", true},
		{"time_minutes", "ten"},
		{"title", 12},
		{"tags", "Dinner"},
	}
	for _, c := range cases {
		body := recipePayload()
		body[c.field] = c.value

		rr := s.do(http.MethodPost, "/api/v1/recipes", token, body)
		require.Equal(t, http.StatusBadRequest, rr.Code, c.field)
		env := parse(t, rr, nil)
		assert.Equal(t, "invalid", env.Error.Code)
		assert.Contains(t, env.Error.Fields, c.field, rr.Body.String())

		rr = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/recipes/%d", recipe.ID), token, map[string]any{c.field: c.value})
		require.Equal(t, http.StatusBadRequest, rr.Code, c.field)
		env = parse(t, rr, nil)
		assert.Contains(t, env.Error.Fields, c.field, rr.Body.String())
	}

	var stored models.Recipe
	require.NoError(t, s.db.First(&stored, recipe.ID).Error)
	assert.Equal(t, recipe.Title, stored.Title)
}

func TestPartialUpdateIgnoresOwnerField(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user("user@example.com")
	other, _ := s.user("other@example.com")
	recipe := testutil.CreateRecipe(t, s.db, owner)

	rr := s.do(http.MethodPatch, fmt.Sprintf("/api/v1/recipes/%d", recipe.ID), token, map[string]any{
		"title": "New title",
		"user":  other.ID.String(),
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out types.RecipeDetailResponse
	parse(t, rr, &out)
	assert.Equal(t, "New title", out.Title)
	assert.Equal(t, "5.25", out.Price)
	assert.Equal(t, recipe.Link, out.Link)

	var stored models.Recipe
	require.NoError(t, s.db.First(&stored, recipe.ID).Error)
	assert.Equal(t, owner.ID, stored.UserID)
}

func TestFullUpdateReplacesLabels(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user("user@example.com")
	recipe := testutil.CreateRecipe(t, s.db, owner)
	testutil.Link(t, s.db, recipe, testutil.CreateTag(t, s.db, owner, "Breakfast"))
	path := fmt.Sprintf("/api/v1/recipes/%d", recipe.ID)

	rr := s.do(http.MethodPut, path, token, map[string]any{"title": "Missing fields"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := recipePayload()
	body["price"] = "9"
	body["tags"] = []map[string]string{{"name": "Lunch"}}
	rr = s.do(http.MethodPut, path, token, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out types.RecipeDetailResponse
	parse(t, rr, &out)
	assert.Equal(t, "Thai prawn curry", out.Title)
	assert.Equal(t, "9.00", out.Price)
	assert.Equal(t, []string{"Lunch"}, names(out.Tags))

	body["tags"] = []map[string]string{}
	rr = s.do(http.MethodPut, path, token, body)
	require.Equal(t, http.StatusOK, rr.Code)
	parse(t, rr, &out)
	assert.Empty(t, out.Tags)

	// the detached tag itself survives
	var count int64
	require.NoError(t, s.db.Model(&models.Tag{}).Where("name = ?", "Breakfast").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestOtherUsersRecipeIsNotFound(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.user("owner@example.com")
	_, token := s.user("intruder@example.com")
	recipe := testutil.CreateRecipe(t, s.db, owner)
	path := fmt.Sprintf("/api/v1/recipes/%d", recipe.ID)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPatch, path, token, map[string]any{"title": "x"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/recipes/abc", token, nil).Code)

	rr := s.do(http.MethodGet, "/api/v1/recipes", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []types.RecipeResponse
	env := parse(t, rr, &list)
	assert.Empty(t, list)
	assert.EqualValues(t, 0, env.Meta.Total)
}

func TestDeleteRecipe(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user("user@example.com")
	recipe := testutil.CreateRecipe(t, s.db, owner)
	tag := testutil.CreateTag(t, s.db, owner, "Vegan")
	testutil.Link(t, s.db, recipe, tag)

	rr := s.do(http.MethodDelete, fmt.Sprintf("/api/v1/recipes/%d", recipe.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(http.MethodGet, fmt.Sprintf("/api/v1/tags/%d", tag.ID), token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestFilterRecipes(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user("user@example.com")

	curry := testutil.CreateRecipe(t, s.db, owner, func(r *models.Recipe) { r.Title = "Curry" })
	tahini := testutil.CreateRecipe(t, s.db, owner, func(r *models.Recipe) { r.Title = "Tahini" })
	plain := testutil.CreateRecipe(t, s.db, owner, func(r *models.Recipe) { r.Title = "Fish and chips" })

	vegan := testutil.CreateTag(t, s.db, owner, "Vegan")
	veggie := testutil.CreateTag(t, s.db, owner, "Vegetarian")
	garlic := testutil.CreateIngredient(t, s.db, owner, "Garlic")
	testutil.Link(t, s.db, curry, vegan, garlic)
	testutil.Link(t, s.db, tahini, veggie)

	rr := s.do(http.MethodGet, fmt.Sprintf("/api/v1/recipes?tags=%d,%d", vegan.ID, veggie.ID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []types.RecipeResponse
	parse(t, rr, &list)
	require.Len(t, list, 2)
	assert.Equal(t, tahini.ID, list[0].ID)
	assert.Equal(t, curry.ID, list[1].ID)

	rr = s.do(http.MethodGet, fmt.Sprintf("/api/v1/recipes?tags=%d,%d&ingredients=%d", vegan.ID, veggie.ID, garlic.ID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	parse(t, rr, &list)
	require.Len(t, list, 1)
	assert.Equal(t, curry.ID, list[0].ID)

	rr = s.do(http.MethodGet, "/api/v1/recipes?page=1&page_size=2", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	env := parse(t, rr, &list)
	assert.Len(t, list, 2)
	assert.EqualValues(t, 3, env.Meta.Total)
	assert.Equal(t, plain.ID, list[0].ID)

	rr = s.do(http.MethodGet, "/api/v1/recipes?tags=a,b", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env = parse(t, rr, nil)
	assert.Contains(t, env.Error.Fields, "tags")
}

func TestAssignedOnlyLabels(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user("user@example.com")
	recipe := testutil.CreateRecipe(t, s.db, owner)
	other := testutil.CreateRecipe(t, s.db, owner)
	breakfast := testutil.CreateTag(t, s.db, owner, "Breakfast")
	testutil.CreateTag(t, s.db, owner, "Lunch")
	testutil.Link(t, s.db, recipe, breakfast)
	testutil.Link(t, s.db, other, breakfast)

	rr := s.do(http.MethodGet, "/api/v1/tags", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []types.LabelResponse
	parse(t, rr, &list)
	assert.Equal(t, []string{"Lunch", "Breakfast"}, names(list))

	rr = s.do(http.MethodGet, "/api/v1/tags?assigned_only=1", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	parse(t, rr, &list)
	assert.Equal(t, []string{"Breakfast"}, names(list))

	rr = s.do(http.MethodGet, "/api/v1/ingredients?assigned_only=true", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	parse(t, rr, &list)
	assert.Empty(t, list)
}

func TestTagLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user("user@example.com")
	recipe := testutil.CreateRecipe(t, s.db, owner)

	rr := s.do(http.MethodPost, "/api/v1/tags", token, map[string]any{"name": "Dessert"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var tag types.LabelResponse
	parse(t, rr, &tag)

	rr = s.do(http.MethodPost, "/api/v1/tags", token, map[string]any{"name": "Dessert"})
	require.Equal(t, http.StatusOK, rr.Code)
	var again types.LabelResponse
	parse(t, rr, &again)
	assert.Equal(t, tag.ID, again.ID)

	var stored models.Tag
	require.NoError(t, s.db.First(&stored, tag.ID).Error)
	testutil.Link(t, s.db, recipe, &stored)
	path := fmt.Sprintf("/api/v1/tags/%d", tag.ID)

	rr = s.do(http.MethodPatch, path, token, map[string]any{"name": "Sweets"})
	require.Equal(t, http.StatusOK, rr.Code)
	parse(t, rr, &tag)
	assert.Equal(t, "Sweets", tag.Name)

	rr = s.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(http.MethodGet, fmt.Sprintf("/api/v1/recipes/%d", recipe.ID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail types.RecipeDetailResponse
	parse(t, rr, &detail)
	assert.Empty(t, detail.Tags)
}

func TestIngredientRenameConflict(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user("user@example.com")
	salt := testutil.CreateIngredient(t, s.db, owner, "Salt")
	testutil.CreateIngredient(t, s.db, owner, "Pepper")

	rr := s.do(http.MethodPut, fmt.Sprintf("/api/v1/ingredients/%d", salt.ID), token, map[string]any{"name": "Pepper"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func pngImage(t *testing.T, size int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, size, size))))
	return buf.Bytes()
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.user("user@example.com")
	recipe := testutil.CreateRecipe(t, s.db, owner)
	path := fmt.Sprintf("/api/v1/recipes/%d/image", recipe.ID)

	rr := s.upload(path, token, pngImage(t, 10))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out types.ImageResponse
	parse(t, rr, &out)
	assert.Equal(t, recipe.ID, out.ID)
	assert.True(t, strings.HasPrefix(out.Image, "/media/uploads/recipe/"), out.Image)
	assert.True(t, strings.HasSuffix(out.Image, ".png"), out.Image)

	rr = s.do(http.MethodGet, out.Image, "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, fmt.Sprintf("/api/v1/recipes/%d", recipe.ID), token, nil)
	var detail types.RecipeDetailResponse
	parse(t, rr, &detail)
	assert.Equal(t, out.Image, detail.Image)

	rr = s.upload(path, token, []byte("notanimage"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := parse(t, rr, nil)
	assert.Contains(t, env.Error.Fields, "image")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", nil).Code)

	rr := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "catalogue_http_requests_total")
}
