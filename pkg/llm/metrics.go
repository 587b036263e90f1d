package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of a completion client.
// A nil *Metrics records nothing.
type Metrics struct {
	Attempts        *prometheus.CounterVec   // docsbuilder_llm_attempts_total{operation,outcome}
	Retries         *prometheus.CounterVec   // docsbuilder_llm_retries_total{operation}
	Results         *prometheus.CounterVec   // docsbuilder_llm_results_total{operation,kind}
	AttemptDuration *prometheus.HistogramVec // docsbuilder_llm_attempt_duration_seconds{operation}
}

// NewMetrics registers the client metrics with registry, or with the
// default Prometheus registry when registry is nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Metrics{
		Attempts: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "docsbuilder_llm_attempts_total",
			Help: "Outbound completion API attempts by outcome (status class, timeout, reset, error)",
		}, []string{"operation", "outcome"}),

		Retries: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "docsbuilder_llm_retries_total",
			Help: "Attempts resent after a retryable failure",
		}, []string{"operation"}),

		Results: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "docsbuilder_llm_results_total",
			Help: "Completed client operations by result kind",
		}, []string{"operation", "kind"}),

		AttemptDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docsbuilder_llm_attempt_duration_seconds",
			Help:    "Duration of a single outbound attempt until response headers",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
	}
}

func (m *Metrics) attempted(op, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(op, outcome).Inc()
	m.AttemptDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) retried(op string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(op).Inc()
}

func (m *Metrics) finished(op string, kind Kind) {
	if m == nil {
		return
	}
	m.Results.WithLabelValues(op, kind.String()).Inc()
}
