package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/recipe-studio/catalogue/internal/api/middleware"
	"github.com/recipe-studio/catalogue/internal/api/types"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
	"github.com/recipe-studio/catalogue/pkg/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Validator is satisfied by *validators.Validator.
type Validator interface {
	Struct(any) error
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError derives the status from the error code. Server-side failures
// are logged with the request id and reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

// decode reads a JSON body into dst and validates it. Values of the wrong
// type are reported as validation errors on their field.
func decode(r *http.Request, v Validator, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "read body failed")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return decodeError(err, body, dst)
	}
	return v.Struct(dst)
}

func decodeError(err error, body []byte, dst any) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return appErr.Validation("invalid field type", map[string]string{typeErr.Field: expected(typeErr.Type)})
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		// custom unmarshalers such as decimal prices fail without a field name
		if field := failingField(body, dst); field != "" {
			return appErr.Validation("invalid field value", map[string]string{field: "is invalid"})
		}
	}
	return appErr.Wrap(err, appErr.CodeInvalid, "invalid json")
}

// failingField decodes each top-level field of body on its own and returns
// the JSON name of the first one that does not fit dst.
func failingField(body []byte, dst any) string {
	var raw map[string]json.RawMessage
	if json.Unmarshal(body, &raw) != nil {
		return ""
	}
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return ""
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		value, ok := raw[name]
		if !ok {
			continue
		}
		if json.Unmarshal(value, reflect.New(f.Type).Interface()) != nil {
			return name
		}
	}
	return ""
}

func expected(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "must be a number"
	case reflect.String:
		return "must be a string"
	case reflect.Bool:
		return "must be a boolean"
	case reflect.Slice, reflect.Array:
		return "must be a list"
	default:
		return "must be an object"
	}
}

// pathID parses the {id} URL parameter. Malformed ids are reported as not
// found, like ids that do not exist.
func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, appErr.NotFound("resource")
	}
	return id, nil
}

// pagination reads page and page_size with the default and upper bound.
func pagination(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size
}

func listMeta(r *http.Request, page, size int, total int64) *types.Meta {
	return &types.Meta{RequestID: middleware.GetRequestID(r.Context()), Page: page, PageSize: size, Total: total}
}
