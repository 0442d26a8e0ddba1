// Package metrics holds the Prometheus collectors for freightdesk. Every
// method is safe on a nil *Metrics so services can run without it in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "freightdesk"

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	QuoteTransitionsTotal *prometheus.CounterVec
	ShipmentEventsTotal   *prometheus.CounterVec
	CodesIssuedTotal      *prometheus.CounterVec
	NotificationsTotal    *prometheus.CounterVec
	NotificationAttempts  prometheus.Histogram
	NotifyQueueDepth      prometheus.Gauge
}

// New registers all collectors on a private registry, plus the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		QuoteTransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quotes_transitions_total",
				Help:      "Quote status transitions by target status",
			},
			[]string{"status"},
		),
		ShipmentEventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "shipment_events_total",
				Help:      "Tracking events appended by status",
			},
			[]string{"status"},
		),
		CodesIssuedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "codes_issued_total",
				Help:      "One-time code issue attempts by purpose and result",
			},
			[]string{"purpose", "result"},
		),
		NotificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notification outcomes by kind and result",
			},
			[]string{"kind", "result"},
		),
		NotificationAttempts: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "notification_attempts",
				Help:      "Delivery attempts used per notification",
				Buckets:   []float64{1, 2, 3, 4, 5, 8},
			},
		),
		NotifyQueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "notify_queue_depth",
				Help:      "Jobs waiting in the in-memory notification queue",
			},
		),
	}
}

func (m *Metrics) QuoteTransition(status string) {
	if m == nil {
		return
	}
	m.QuoteTransitionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ShipmentEvent(status string) {
	if m == nil {
		return
	}
	m.ShipmentEventsTotal.WithLabelValues(status).Inc()
}

// CodeIssued records an issue attempt; result is "issued" or "cooldown".
func (m *Metrics) CodeIssued(purpose, result string) {
	if m == nil {
		return
	}
	m.CodesIssuedTotal.WithLabelValues(purpose, result).Inc()
}

// Notification records a final outcome; result is "sent", "failed" or
// "enqueue_failed".
func (m *Metrics) Notification(kind, result string, attempts int) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(kind, result).Inc()
	if attempts > 0 {
		m.NotificationAttempts.Observe(float64(attempts))
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.NotifyQueueDepth.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by the matched
// ServeMux pattern, so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
