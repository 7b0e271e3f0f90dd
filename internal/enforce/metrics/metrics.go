package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enforcement pipeline.
type Metrics struct {
	// Enforcement outcomes by status and purpose
	Outcome *prometheus.CounterVec

	// Fields transformed, by obfuscation method
	FieldsTransformed *prometheus.CounterVec

	// Overall pipeline latency
	ProcessLatency prometheus.Histogram
}

// New creates a new Metrics instance with all enforcement metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_enforce_outcomes_total",
			Help: "Total enforcement outcomes by status and purpose",
		}, []string{"status", "purpose"}),

		FieldsTransformed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_enforce_fields_transformed_total",
			Help: "Total fields obfuscated by method",
		}, []string{"method"}),

		ProcessLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veil_enforce_process_duration_seconds",
			Help:    "Duration of full record enforcement including audit append",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementOutcome records an enforcement outcome.
func (m *Metrics) IncrementOutcome(status, purpose string) {
	if m != nil {
		m.Outcome.WithLabelValues(status, purpose).Inc()
	}
}

// IncrementTransformed records one obfuscated field.
func (m *Metrics) IncrementTransformed(method string) {
	if m != nil {
		m.FieldsTransformed.WithLabelValues(method).Inc()
	}
}

// ObserveProcessLatency records the total pipeline duration.
func (m *Metrics) ObserveProcessLatency(d time.Duration) {
	if m != nil {
		m.ProcessLatency.Observe(d.Seconds())
	}
}
