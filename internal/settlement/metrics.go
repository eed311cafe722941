package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_settlements_total",
		Help: "Pairs settled with agreeing outcomes on both venues",
	})

	MismatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_settlement_mismatches_total",
		Help: "Pairs whose venues resolved to different outcomes",
	})

	PairsAwaitingResolution = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prediction_arb_settlement_pairs_awaiting_resolution",
		Help: "Open pairs with at most one venue resolved",
	})

	PayoutMicrosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_settlement_payout_micros_total",
		Help: "Cumulative settlement payouts in micro-dollars",
	})

	ResolutionFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_settlement_resolution_fetch_errors_total",
		Help: "Resolution status fetch failures by venue",
	}, []string{"venue"})

	ReconcileRunDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_arb_settlement_reconcile_duration_seconds",
		Help:    "Wall time of one reconciliation pass",
		Buckets: prometheus.DefBuckets,
	})
)
