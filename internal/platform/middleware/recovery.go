package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apierr"
	"github.com/hms/hms/internal/platform/auth"
)

// maxStack bounds the stack captured for a recovered panic.
const maxStack = 8 << 10

// Recovery turns a handler panic into the same generic 500 that apierr
// gives any internal error, and logs who hit it and where with the stack.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if e, ok := r.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(r)
				}
				stack := make([]byte, maxStack)
				stack = stack[:runtime.Stack(stack, false)]
				rid, _ := c.Get("request_id").(string)
				ctx := c.Request().Context()

				logger.Error().
					Str("request_id", rid).
					Str("user_id", auth.UserIDFromContext(ctx)).
					Str("method", c.Request().Method).
					Str("route", routeOf(c)).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", stack).
					Msg("panic recovered")

				err = apierr.From(fmt.Errorf("panic in %s %s: %v", c.Request().Method, routeOf(c), r))
			}()
			return next(c)
		}
	}
}

// routeOf returns the matched route template, or the raw path when no
// route matched.
func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}
