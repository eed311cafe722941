package position

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FillsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_position_fills_applied_total",
		Help: "Fills folded into pair positions by venue",
	}, []string{"venue"})

	PositionsSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_position_settled_total",
		Help: "Pair positions settled from resolved outcomes",
	})

	UnhedgedPairs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prediction_arb_position_unhedged_pairs",
		Help: "Pairs currently flagged with unhedged exposure",
	})

	RealizedPnLMicros = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_position_realized_pnl_micros_total",
		Help: "Cumulative realized PnL in micro-dollars",
	})
)
