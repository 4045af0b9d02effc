package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request, continuing any W3C trace context
// the caller sent. The span context travels on the request context so store
// transactions become child spans.
func Tracing(tracer trace.Tracer) echo.MiddlewareFunc {
	if tracer == nil {
		tracer = otel.Tracer("github.com/hms/hms/internal/platform/middleware")
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			prop := otel.GetTextMapPropagator()
			ctx := prop.Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", req.Method, route),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPMethodKey.String(req.Method),
					semconv.HTTPRouteKey.String(route),
					semconv.HTTPUserAgentKey.String(req.UserAgent()),
					semconv.HTTPClientIPKey.String(c.RealIP()),
				),
			)
			defer span.End()

			if rid, ok := c.Get("request_id").(string); ok {
				span.SetAttributes(attribute.String("http.request_id", rid))
			}
			prop.Inject(ctx, propagation.HeaderCarrier(c.Response().Header()))
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			status := statusOf(c, err)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
			if err != nil {
				span.RecordError(err)
			}
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			}
			return err
		}
	}
}
