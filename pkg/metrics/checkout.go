package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order commit attempts and their outcomes.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	commits  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_commit_duration_seconds",
		Help:    "Duration of order commit transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_commits_total",
		Help: "Order commit attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, commits)
	return &CheckoutMetrics{duration: duration, commits: commits}
}

// ObserveCommit records one commit attempt with its outcome label.
func (c *CheckoutMetrics) ObserveCommit(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	label := normalizeLabel(outcome)
	c.duration.WithLabelValues(label).Observe(duration.Seconds())
	c.commits.WithLabelValues(label).Inc()
}
