package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_executions_total",
		Help: "Execution attempts by final outcome",
	}, []string{"outcome"})

	ExecutionsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_executions_skipped_total",
		Help: "Opportunities dropped before any order was placed",
	}, []string{"reason"})

	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_orders_total",
		Help: "Orders submitted by venue and terminal state",
	}, []string{"venue", "state"})

	ContractsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_contracts_executed_total",
		Help: "Contracts filled on both legs of closed executions",
	})

	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_arb_execution_duration_seconds",
		Help:    "Wall time of one execution attempt",
		Buckets: prometheus.DefBuckets,
	})
)
