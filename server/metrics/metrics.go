// Package metrics exposes prometheus collectors for the turn pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the service collectors. A single instance is shared by
// the orchestrator and the HTTP layer.
type Metrics struct {
	TurnsTotal          *prometheus.CounterVec
	TurnDuration        prometheus.Histogram
	CompletionFailures  prometheus.Counter
	CompletionTokens    prometheus.Counter
	SessionsCreated     prometheus.Counter
	SessionsDeleted     prometheus.Counter
}

// New registers the collectors on the given registerer and returns them.
// Pass prometheus.NewRegistry() in tests to avoid global registration
// conflicts.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindwell",
			Name:      "turns_total",
			Help:      "Chat turns processed, labeled by outcome.",
		}, []string{"status"}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mindwell",
			Name:      "turn_duration_seconds",
			Help:      "Wall-clock duration of a full chat turn.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		CompletionFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mindwell",
			Name:      "completion_failures_total",
			Help:      "Completion provider calls that failed or timed out.",
		}),
		CompletionTokens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mindwell",
			Name:      "completion_tokens_total",
			Help:      "Total tokens reported by the completion provider.",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mindwell",
			Name:      "sessions_created_total",
			Help:      "Sessions created lazily on first turn.",
		}),
		SessionsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mindwell",
			Name:      "sessions_deleted_total",
			Help:      "Sessions deleted by their owner.",
		}),
	}
}
