package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CasesCreated    prometheus.Counter
	Transitions     *prometheus.CounterVec
	AuthzDenials    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		CasesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casefile_cases_created_total",
			Help: "Total number of case records created",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casefile_case_transitions_total",
			Help: "Total lifecycle operations applied, by operation",
		}, []string{"operation"}),
		AuthzDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casefile_authz_denials_total",
			Help: "Total authorization denials, by reason",
		}, []string{"reason"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casefile_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) IncrementCasesCreated() {
	if m != nil {
		m.CasesCreated.Inc()
	}
}

func (m *Metrics) IncrementTransition(operation string) {
	if m != nil {
		m.Transitions.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) IncrementAuthzDenial(reason string) {
	if m != nil {
		m.AuthzDenials.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveRequestDuration(method, path string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
	}
}
