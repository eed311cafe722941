package riskbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prediction_arb_risk_breaker_enabled",
		Help: "1 when executions are allowed, 0 when the breaker is tripped",
	})

	BreakerTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_risk_breaker_trips_total",
		Help: "Times the breaker tripped on unhedged exposure",
	})

	UnhedgedExposureMicros = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prediction_arb_risk_breaker_unhedged_exposure_micros",
		Help: "Unhedged exposure at the last check in micro-dollars",
	})

	BreakerMaxExposureMicros = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prediction_arb_risk_breaker_max_exposure_micros",
		Help: "Configured exposure limit in micro-dollars",
	})
)
