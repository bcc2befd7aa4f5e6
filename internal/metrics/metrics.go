// path: internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Ticks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_ticks_total",
		Help: "Number of scheduler loop ticks executed.",
	})

	PostsClaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_posts_claimed_total",
		Help: "Number of posts atomically claimed for publishing.",
	})

	ClaimDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_claim_duration_seconds",
		Help:    "Latency of the atomic claim query.",
		Buckets: prometheus.DefBuckets,
	})

	TargetOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publisher_target_outcomes_total",
		Help: "Publish outcomes per platform and result.",
	}, []string{"platform", "outcome"})

	PublishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "publisher_target_duration_seconds",
		Help:    "Latency of one target's publish pipeline pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})
)

// Register wires all collectors into the given registerer rather than
// client_golang's default global registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(Ticks, PostsClaimed, ClaimDuration, TargetOutcomes, PublishDuration)
}
