package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	errors       *prometheus.CounterVec
	authAttempts *prometheus.CounterVec
	authDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Panics if registration fails (following prometheus convention).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ride_auth_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ride_auth_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ride_auth_http_errors_total",
			Help: "Total number of error responses by error type",
		}, []string{"route", "method", "error_type"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ride_auth_gate_attempts_total",
			Help: "Authentication gate outcomes by actor kind and final stage",
		}, []string{"kind", "stage", "outcome"}),
		authDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ride_auth_gate_duration_seconds",
			Help:    "Time spent in the authentication gate",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(m.requests, m.duration, m.errors, m.authAttempts, m.authDuration)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, errorType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, errorType).Inc()
}

// RecordAuthAttempt records one pass through the authentication gate.
func (m *Metrics) RecordAuthAttempt(kind, stage, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(kind, stage, outcome).Inc()
	m.authDuration.WithLabelValues(kind, outcome).Observe(duration.Seconds())
}
