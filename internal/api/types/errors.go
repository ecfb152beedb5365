package types

import (
	"errors"
	"net/http"

	appErr "github.com/recipe-studio/catalogue/pkg/errors"
)

// FromAppError converts an error into its wire form. Messages of internal
// errors are replaced so storage details never reach clients.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	code := appErr.CodeOf(err)
	switch code {
	case appErr.CodeUnknown, appErr.CodeInternal:
		return &APIError{Code: string(appErr.CodeInternal), Message: "internal server error"}
	}
	var ae *appErr.AppError
	errors.As(err, &ae)
	return &APIError{Code: string(code), Message: ae.Message, Fields: ae.Fields}
}

// HTTPStatus maps an error code onto a response status.
func HTTPStatus(err error) int {
	switch appErr.CodeOf(err) {
	case appErr.CodeInvalid:
		return http.StatusBadRequest
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeConflict, appErr.CodeAlreadyExists:
		return http.StatusConflict
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
