package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hms/hms/internal/platform/auth"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	var seen string
	err := RequestID()(func(c echo.Context) error {
		seen, _ = c.Get("request_id").(string)
		return okHandler(c)
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == "" {
		t.Fatal("expected request_id to be generated")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header %q does not match %q", rec.Header().Get(RequestIDHeader), seen)
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "front-desk-42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = RequestID()(okHandler)(c)
	if c.Get("request_id") != "front-desk-42" {
		t.Errorf("expected front-desk-42, got %v", c.Get("request_id"))
	}
	if rec.Header().Get(RequestIDHeader) != "front-desk-42" {
		t.Errorf("expected id echoed in response, got %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestLogger_UsesErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/bills/BILL-9", nil), httptest.NewRecorder())
	c.Set("request_id", "req-1")

	err := Logger(zerolog.New(&buf))(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "bill not found")
	})(c)
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["status"] != float64(404) {
		t.Errorf("expected status 404, got %v", line["status"])
	}
	if line["level"] != "warn" {
		t.Errorf("expected warn level, got %v", line["level"])
	}
	if line["request_id"] != "req-1" {
		t.Errorf("expected request_id req-1, got %v", line["request_id"])
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bills/BILL-1001/pay", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "u-9", "Cashier Tunde", []string{auth.RoleCashier}))
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/bills/:id/pay")
	c.Set("request_id", "rid-42")

	err := Recovery(zerolog.New(&buf))(func(c echo.Context) error {
		panic("ledger exploded")
	})(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError || httpErr.Message != "internal server error" {
		t.Errorf("expected generic 500, got %d %v", httpErr.Code, httpErr.Message)
	}
	if httpErr.Internal == nil || !strings.Contains(httpErr.Internal.Error(), "ledger exploded") {
		t.Errorf("expected panic kept as the internal error, got %v", httpErr.Internal)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	for field, want := range map[string]string{
		"request_id": "rid-42",
		"user_id":    "u-9",
		"method":     http.MethodPost,
		"route":      "/api/v1/bills/:id/pay",
		"panic":      "ledger exploded",
	} {
		if entry[field] != want {
			t.Errorf("log field %s: got %v, want %q", field, entry[field], want)
		}
	}
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/events", nil), httptest.NewRecorder())
	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Errorf("expected http.ErrAbortHandler to propagate, got %v", r)
		}
	}()
	_ = Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic(http.ErrAbortHandler)
	})(c)
	t.Error("expected the panic to propagate")
}

func TestRecovery_PassesThrough(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ok", nil), httptest.NewRecorder())
	if err := Recovery(zerolog.Nop())(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRateLimit(t *testing.T) {
	e := echo.New()
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})(okHandler)

	call := func(user string) (*httptest.ResponseRecorder, error) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if user != "" {
			c.Set("user_id", user)
		}
		return rec, h(c)
	}

	for i := 0; i < 2; i++ {
		rec, err := call("cashier-1")
		if err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "1" {
			t.Errorf("expected X-RateLimit-Limit 1, got %q", rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec, err := call("cashier-1")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected X-RateLimit-Remaining 0, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}

	if _, err := call("cashier-2"); err != nil {
		t.Errorf("second user should have its own bucket, got %v", err)
	}
}

func TestRateLimit_DisabledWithZeroRate(t *testing.T) {
	e := echo.New()
	h := RateLimit(RateLimitConfig{})(okHandler)
	for i := 0; i < 50; i++ {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		if err := h(c); err != nil {
			t.Fatalf("request %d limited with zero rate: %v", i, err)
		}
	}
}

func TestTokenBucket_RetryAfterWithZeroRate(t *testing.T) {
	b := newTokenBucket(0, 1)
	b.allow()
	if ra := b.retryAfter(); ra != 1 {
		t.Errorf("expected retryAfter 1 for zero rate, got %d", ra)
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil), rec)

	err := SecurityHeaders()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})(c)
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}

	expected := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":              "no-referrer",
		"Cross-Origin-Resource-Policy": "same-site",
		"Cache-Control":                "no-store",
	}
	for header, want := range expected {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("header %s: got %q, want %q", header, got, want)
		}
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("expected no HSTS over plain http, got %q", got)
	}
	if got := rec.Header().Get("X-Download-Options"); got != "" {
		t.Errorf("expected no download header on a JSON route, got %q", got)
	}
}

func TestSecurityHeaders_HTTPSAndDownloads(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/export", nil)
	req.Header.Set(echo.HeaderXForwardedProto, "https")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := SecurityHeaders()(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("expected HSTS behind an https proxy, got %q", got)
	}
	if got := rec.Header().Get("X-Download-Options"); got != "noopen" {
		t.Errorf("expected X-Download-Options on report export, got %q", got)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 1 << 20},
		{"512", 512},
		{"64K", 64 << 10},
		{"2m", 2 << 20},
		{"2MB", 2 << 20},
		{"1G", 1 << 30},
		{"lots", 1 << 20},
		{"-5", 1 << 20},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.in); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBodyLimit(t *testing.T) {
	e := echo.New()
	readAll := func(c echo.Context) error {
		if _, err := io.ReadAll(c.Request().Body); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
	h := BodyLimit("16")(readAll)

	small := e.NewContext(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)), httptest.NewRecorder())
	if err := h(small); err != nil {
		t.Fatalf("small body rejected: %v", err)
	}

	big := e.NewContext(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))), httptest.NewRecorder())
	if httpErr, ok := h(big).(*echo.HTTPError); !ok || httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for declared length, got %v", httpErr)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1
	chunked := e.NewContext(req, httptest.NewRecorder())
	if httpErr, ok := h(chunked).(*echo.HTTPError); !ok || httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for undeclared length, got %v", httpErr)
	}
}

func TestRequestTimeout(t *testing.T) {
	e := echo.New()
	slow := func(c echo.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	}

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/reports/export", nil), httptest.NewRecorder())
	err := RequestTimeout(10*time.Millisecond, "/api/v1/events")(slow)(c)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %v", err)
	}

	var deadline bool
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/events", nil), httptest.NewRecorder())
	_ = RequestTimeout(10*time.Millisecond, "/api/v1/events")(func(c echo.Context) error {
		_, deadline = c.Request().Context().Deadline()
		return nil
	})(c)
	if deadline {
		t.Error("skipped path should not get a deadline")
	}
}

func TestAudit_LogsWritesOnly(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Audit(zerolog.New(&buf)))
	e.POST("/api/v1/bills/:id/pay", okHandler)
	e.GET("/api/v1/bills/:id", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bills/BILL-1001", nil)
	e.ServeHTTP(httptest.NewRecorder(), req)
	if buf.Len() != 0 {
		t.Fatalf("reads should not be audited, got %s", buf.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/bills/BILL-1001/pay", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "u-7", "Ngozi Eze", []string{auth.RoleCashier}))
	e.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("audit line is not JSON: %v (%s)", err, buf.String())
	}
	want := map[string]interface{}{
		"actor":     "Ngozi Eze",
		"user_id":   "u-7",
		"action":    "create",
		"resource":  "bills",
		"route":     "/api/v1/bills/:id/pay",
		"record_id": "BILL-1001",
		"status":    float64(200),
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %v", k, line[k], v)
		}
	}
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (f *fakeObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recordedRequest{method, route, status})
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	obs := &fakeObserver{}
	e := echo.New()
	e.Use(Metrics(obs))
	e.GET("/api/v1/patients/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/patients/P-1001", nil))

	if len(obs.seen) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs.seen))
	}
	got := obs.seen[0]
	if got.route != "/api/v1/patients/:id" || got.status != http.StatusNotFound || got.method != http.MethodGet {
		t.Errorf("unexpected observation %+v", got)
	}
}

func TestTracing_RecordsServerSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	e := echo.New()
	e.Use(Tracing(tp.Tracer("test")))
	e.GET("/api/v1/claims/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/claims/HMO-1001", nil))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "GET /api/v1/claims/:id" {
		t.Errorf("unexpected span name %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status())
	}
}
