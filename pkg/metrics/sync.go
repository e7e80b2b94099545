package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records the outcome of cart reconciliation passes.
type SyncMetrics struct {
	duration *prometheus.HistogramVec
	passes   *prometheus.CounterVec
	merges   prometheus.Counter
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_sync_pass_duration_seconds",
		Help:    "Duration of cart reconciliation passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	passes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_passes_total",
		Help: "Cart reconciliation passes by outcome.",
	}, []string{"outcome"})
	merges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_merges_total",
		Help: "Reconciliation passes that required a line-level merge.",
	})
	reg.MustRegister(duration, passes, merges)
	return &SyncMetrics{
		duration: duration,
		passes:   passes,
		merges:   merges,
	}
}

// ObservePass records one completed pass with its outcome label.
func (s *SyncMetrics) ObservePass(outcome string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	label := normalizeLabel(outcome)
	s.duration.WithLabelValues(label).Observe(duration.Seconds())
	s.passes.WithLabelValues(label).Inc()
}

// IncMerge counts a pass that resolved divergent carts by merging.
func (s *SyncMetrics) IncMerge() {
	if s == nil || s.merges == nil {
		return
	}
	s.merges.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
