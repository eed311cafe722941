package matcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActivePairs tracks the number of currently active matched pairs.
	ActivePairs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prediction_arb_matcher_active_pairs",
		Help: "Number of active matched event pairs",
	})

	// PairsCreatedTotal counts pairs created across all runs.
	PairsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_matcher_pairs_created_total",
		Help: "Total number of matched pairs created",
	})

	// PairsRetiredTotal counts pairs retired after their events went inactive.
	PairsRetiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_matcher_pairs_retired_total",
		Help: "Total number of matched pairs retired",
	})

	// MatchRunDurationSeconds tracks full match cycle latency.
	MatchRunDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_arb_matcher_run_duration_seconds",
		Help:    "Duration of a full matching run",
		Buckets: prometheus.DefBuckets,
	})
)
