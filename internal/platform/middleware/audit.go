package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/auth"
)

// Audit logs every write under /api/v1/ with the acting staff member, their
// roles, the matched route and the record id. Reads are not audited.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") || !isWrite(req.Method) {
				return next(c)
			}

			err := next(c)

			status := statusOf(c, err)
			rid, _ := c.Get("request_id").(string)
			ctx := req.Context()

			evt := logger.Info()
			if status >= http.StatusBadRequest {
				evt = logger.Warn()
			}
			evt.
				Str("type", "audit").
				Str("request_id", rid).
				Str("user_id", auth.UserIDFromContext(ctx)).
				Str("actor", auth.ActorFromContext(ctx)).
				Strs("roles", auth.RolesFromContext(ctx)).
				Str("action", methodAction(req.Method)).
				Str("resource", resourceOf(req.URL.Path)).
				Str("route", c.Path()).
				Str("record_id", c.Param("id")).
				Int("status", status).
				Msg("record change")

			return err
		}
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func methodAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceOf returns the first path segment after /api/v1/, e.g. "bills"
// for /api/v1/bills/BILL-1001/pay.
func resourceOf(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "unknown"
	}
	return rest
}
