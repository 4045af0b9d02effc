// Package apierr translates domain errors into HTTP responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/platform/blobstore"
	"github.com/hms/hms/internal/store"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, model.ErrValidation), errors.Is(err, blobstore.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, blobstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition), errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, blobstore.ErrExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrInsufficientBalance), errors.Is(err, model.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// From wraps err as an echo.HTTPError. Internal errors get a generic
// message; everything else carries the error text for the client.
func From(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	code := Status(err)
	if code == http.StatusInternalServerError {
		return echo.NewHTTPError(code, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}

// BadRequest is a 400 for malformed input caught in a handler.
func BadRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
