package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetectedTotal tracks opportunities detected.
	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_opportunities_detected_total",
		Help: "Total number of arbitrage opportunities detected",
	})

	// OpportunitiesRejectedTotal tracks rejected candidate spreads by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_arb_opportunities_rejected_total",
			Help: "Total number of candidate spreads rejected",
		},
		[]string{"reason"},
	)

	// OpportunitiesExpiredTotal tracks opportunities expired at re-validation.
	OpportunitiesExpiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_arb_opportunities_expired_total",
			Help: "Total number of opportunities expired before execution",
		},
		[]string{"reason"},
	)

	// OpportunityMarginMicros tracks per-contract margins in micro-dollars.
	OpportunityMarginMicros = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_arb_opportunity_margin_micros",
		Help:    "Opportunity margin per contract in micro-dollars",
		Buckets: []float64{1000, 5000, 10000, 25000, 50000, 100000, 200000, 500000},
	})

	// OpportunitySize tracks opportunity size caps in contracts.
	OpportunitySize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_arb_opportunity_size_contracts",
		Help:    "Opportunity size cap in contracts",
		Buckets: prometheus.ExponentialBuckets(10, 2, 10),
	})

	// DetectionDurationSeconds tracks detection loop latency.
	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_arb_detection_duration_seconds",
		Help:    "Duration of a single pair evaluation",
		Buckets: prometheus.DefBuckets,
	})
)
