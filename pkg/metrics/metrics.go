package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestDuration tracks the duration of pipeline operations.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contenttrust_request_duration_seconds",
			Help:    "Time spent processing pipeline operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// VotesApplied counts vote ledger mutations by result.
	VotesApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenttrust_votes_applied_total",
			Help: "Vote ledger mutations by result (inserted, toggled_off, switched, removed)",
		},
		[]string{"result"},
	)

	// FlagsSubmitted counts submitted content flags.
	FlagsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contenttrust_flags_submitted_total",
			Help: "Content flags submitted by reporters",
		},
	)

	// Transitions counts moderation state transitions by action.
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenttrust_transitions_total",
			Help: "Moderation state transitions by action",
		},
		[]string{"action"},
	)

	// DriftCorrections counts reconciliation counter corrections.
	DriftCorrections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contenttrust_drift_corrections_total",
			Help: "Counter corrections applied by the reconciliation job",
		},
	)

	// BulkItems counts per-item outcomes of bulk moderation batches.
	BulkItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenttrust_bulk_items_total",
			Help: "Bulk moderation items by action and outcome (succeeded, failed)",
		},
		[]string{"action", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration,
		VotesApplied,
		FlagsSubmitted,
		Transitions,
		DriftCorrections,
		BulkItems,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
