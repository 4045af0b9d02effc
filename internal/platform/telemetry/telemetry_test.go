package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest(http.MethodGet, "/api/v1/patients/:id", 200, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/v1/patients/:id", 200, 7*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/v1/patients/:id", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/patients/:id", "200")); got != 2 {
		t.Errorf("expected 2 OK requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/patients/:id", "404")); got != 1 {
		t.Errorf("expected 1 not-found request, got %v", got)
	}
}

func TestMetrics_StoreObserver(t *testing.T) {
	m := NewMetrics()
	m.ObserveTransaction(time.Millisecond, 3, nil)
	m.ObserveTransaction(time.Millisecond, 0, errors.New("insufficient balance"))
	m.ObservePersist(time.Millisecond, errors.New("disk full"))
	m.ObserveDroppedEvent()

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"ok transactions", testutil.ToFloat64(m.txTotal.WithLabelValues("ok")), 1},
		{"failed transactions", testutil.ToFloat64(m.txTotal.WithLabelValues("error")), 1},
		{"record changes", testutil.ToFloat64(m.txChanges), 3},
		{"failed persists", testutil.ToFloat64(m.persistTotal.WithLabelValues("error")), 1},
		{"dropped events", testutil.ToFloat64(m.droppedEvents), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestMetrics_HandlerExposesRegistry(t *testing.T) {
	m := NewMetrics()
	if err := m.RegisterGauge("sse_clients", "Connected event stream clients.", func() float64 { return 4 }); err != nil {
		t.Fatalf("register gauge: %v", err)
	}
	m.ObserveRequest(http.MethodPost, "/api/v1/bills", 201, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)

	for _, want := range []string{
		`hms_http_requests_total{method="POST",route="/api/v1/bills",status_code="201"} 1`,
		"hms_sse_clients 4",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetrics_RegisterGaugeTwiceFails(t *testing.T) {
	m := NewMetrics()
	fn := func() float64 { return 1 }
	if err := m.RegisterGauge("low_stock_items", "Items at or below reorder level.", fn); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := m.RegisterGauge("low_stock_items", "Items at or below reorder level.", fn); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown failed: %v", err)
	}
}

func TestSetupTracing_RequiresEndpoint(t *testing.T) {
	if _, err := SetupTracing(TracingConfig{Enabled: true}); err == nil {
		t.Error("expected error without jaeger endpoint")
	}
}

func TestSetupTracing_Enabled(t *testing.T) {
	shutdown, err := SetupTracing(TracingConfig{
		Enabled:        true,
		ServiceName:    "hms-test",
		Environment:    "test",
		JaegerEndpoint: "http://127.0.0.1:14268/api/traces",
		SampleRate:     0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
