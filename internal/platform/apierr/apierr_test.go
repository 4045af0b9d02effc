package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/platform/blobstore"
	"github.com/hms/hms/internal/store"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", model.Invalid("phone is required"), http.StatusBadRequest, "validation failed: phone is required"},
		{"not found", fmt.Errorf("%w: patient %q", store.ErrNotFound, "P-1"), http.StatusNotFound, `not found: patient "P-1"`},
		{"transition", fmt.Errorf("%w: paid to pending", model.ErrInvalidTransition), http.StatusConflict, "invalid status transition: paid to pending"},
		{"duplicate", store.ErrAlreadyExists, http.StatusConflict, "already exists"},
		{"balance", model.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient balance"},
		{"stock", fmt.Errorf("pay: %w", model.ErrInsufficientStock), http.StatusUnprocessableEntity, "pay: insufficient stock"},
		{"archive missing", fmt.Errorf("%w: reports/x.xlsx", blobstore.ErrNotFound), http.StatusNotFound, "blob not found: reports/x.xlsx"},
		{"bad key", blobstore.ErrInvalidKey, http.StatusBadRequest, "invalid blob key"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
		{"passthrough", echo.NewHTTPError(http.StatusForbidden, "nope"), http.StatusForbidden, "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he, ok := From(tt.err).(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected *echo.HTTPError")
			}
			if he.Code != tt.code {
				t.Errorf("code = %d, want %d", he.Code, tt.code)
			}
			if he.Message != tt.msg {
				t.Errorf("message = %v, want %q", he.Message, tt.msg)
			}
		})
	}
}

func TestFrom_Nil(t *testing.T) {
	if From(nil) != nil {
		t.Error("expected nil")
	}
}
