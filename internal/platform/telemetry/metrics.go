// Package telemetry owns the process's Prometheus registry and its
// OpenTelemetry tracer provider.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hms"

// Metrics collects HTTP and store metrics on a private registry. It satisfies
// store.Observer and middleware.RequestObserver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	txTotal       *prometheus.CounterVec
	txDuration    prometheus.Histogram
	txChanges     prometheus.Counter
	persistTotal  *prometheus.CounterVec
	persistTime   prometheus.Histogram
	droppedEvents prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		txTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_transactions_total",
			Help:      "Store transactions by result.",
		}, []string{"result"}),
		txDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_transaction_duration_seconds",
			Help:      "Time spent inside store transactions, lock wait included.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		txChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_record_changes_total",
			Help:      "Records inserted, updated or deleted by committed transactions.",
		}),
		persistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_persist_total",
			Help:      "Snapshot saves by result.",
		}, []string{"result"}),
		persistTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_persist_duration_seconds",
			Help:      "Duration of snapshot saves in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		}),
		droppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_dropped_events_total",
			Help:      "Change events dropped because a subscriber was not keeping up.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.txTotal, m.txDuration, m.txChanges,
		m.persistTotal, m.persistTime,
		m.droppedEvents,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterGauge adds a gauge whose value is read from fn at scrape time.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveTransaction(d time.Duration, changes int, err error) {
	m.txTotal.WithLabelValues(result(err)).Inc()
	m.txDuration.Observe(d.Seconds())
	if changes > 0 {
		m.txChanges.Add(float64(changes))
	}
}

func (m *Metrics) ObservePersist(d time.Duration, err error) {
	m.persistTotal.WithLabelValues(result(err)).Inc()
	m.persistTime.Observe(d.Seconds())
}

func (m *Metrics) ObserveDroppedEvent() { m.droppedEvents.Inc() }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
