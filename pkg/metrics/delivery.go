package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryMetrics records metadata for delivery-status re-evaluation sweeps.
type DeliveryMetrics struct {
	sweepDuration *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	mergeFailures prometheus.Counter
}

// NewDeliveryMetrics registers the re-evaluation metrics on the provided
// registerer. A nil registerer yields a no-op collector.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	sweepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "delivery_sweep_duration_seconds",
		Help:    "Duration of delivery-status re-evaluation sweeps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_status_transitions_total",
		Help: "Order status transitions applied by the re-evaluator.",
	}, []string{"to"})
	mergeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delivery_merge_write_failures_total",
		Help: "Merge write-backs that failed and were retried on a later sweep.",
	})
	reg.MustRegister(sweepDuration, transitions, mergeFailures)
	return &DeliveryMetrics{
		sweepDuration: sweepDuration,
		transitions:   transitions,
		mergeFailures: mergeFailures,
	}
}

// ObserveSweep records the duration of one sweep with its outcome label.
func (m *DeliveryMetrics) ObserveSweep(outcome string, duration time.Duration) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.sweepDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncTransition counts one status transition into the given state.
func (m *DeliveryMetrics) IncTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// IncMergeFailure counts one failed merge write-back.
func (m *DeliveryMetrics) IncMergeFailure() {
	if m == nil || m.mergeFailures == nil {
		return
	}
	m.mergeFailures.Inc()
}
