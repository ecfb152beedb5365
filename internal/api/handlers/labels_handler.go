package handlers

import (
	"net/http"

	"github.com/recipe-studio/catalogue/internal/api/middleware"
	"github.com/recipe-studio/catalogue/internal/api/types"
	"github.com/recipe-studio/catalogue/internal/services"
	"github.com/recipe-studio/catalogue/pkg/utils"
)

// LabelsHandler serves /tags and /ingredients. toResponse renders one label.
type LabelsHandler[T any] struct {
	labels     services.LabelService[T]
	validate   Validator
	toResponse func(T) types.LabelResponse
}

func NewLabelsHandler[T any](labels services.LabelService[T], v Validator, toResponse func(T) types.LabelResponse) *LabelsHandler[T] {
	return &LabelsHandler[T]{labels: labels, validate: v, toResponse: toResponse}
}

func (h *LabelsHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	page, size := pagination(r)
	items, total, err := h.labels.ListLabels(r.Context(), middleware.GetUserID(r.Context()), &services.LabelFilters{
		AssignedOnly: utils.IsTruthy(r.URL.Query().Get("assigned_only")),
		Page:         page,
		PageSize:     size,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]types.LabelResponse, 0, len(items))
	for _, item := range items {
		out = append(out, h.toResponse(item))
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: out, Meta: listMeta(r, page, size, total)})
}

// Create returns 201 for a new label and 200 when one with the same name
// already exists.
func (h *LabelsHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	var req types.LabelRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	label, created, err := h.labels.CreateLabel(r.Context(), middleware.GetUserID(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, types.APIResponse{Success: true, Data: h.toResponse(*label)})
}

func (h *LabelsHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	label, err := h.labels.GetLabel(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: h.toResponse(*label)})
}

// Update serves both PUT and PATCH; name is the only writable field.
func (h *LabelsHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.LabelRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	label, err := h.labels.RenameLabel(r.Context(), id, middleware.GetUserID(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: h.toResponse(*label)})
}

func (h *LabelsHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.labels.DeleteLabel(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
