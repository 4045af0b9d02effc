package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// RequestObserver records one finished HTTP request. route is the matched
// route template so ids do not explode label cardinality.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Metrics reports every request to obs, including failed and unmatched ones.
func Metrics(obs RequestObserver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := statusOf(c, err)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			obs.ObserveRequest(c.Request().Method, route, status, time.Since(start))
			return err
		}
	}
}
