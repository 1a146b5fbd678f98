package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics of the security core.
type Metrics struct {
	ValidationOutcomes *prometheus.CounterVec
	ValidationLatency  *prometheus.HistogramVec
	RateLimitHits      *prometheus.CounterVec
	AuditEventsDropped prometheus.Counter
	CounterStoreErrors prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// NewMetrics creates and registers the Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ValidationOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierd_key_validations_total",
				Help: "Total number of API key validations by outcome.",
			},
			[]string{"outcome"},
		),
		ValidationLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courierd_key_validation_latency_seconds",
				Help:    "Latency of API key validations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierd_rate_limit_hits_total",
				Help: "Total number of denied requests by window.",
			},
			[]string{"window"},
		),
		AuditEventsDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "courierd_audit_events_dropped_total",
				Help: "Total number of audit events dropped on queue overflow.",
			},
		),
		CounterStoreErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "courierd_counter_store_errors_total",
				Help: "Total number of counter store failures handled fail-open.",
			},
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierd_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courierd_http_request_latency_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// IncAuditDropped implements the audit sink's drop counter.
func (m *Metrics) IncAuditDropped() {
	m.AuditEventsDropped.Inc()
}
