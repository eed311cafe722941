package wsfeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "prediction_arb_wsfeed_connected",
		Help: "1 when the venue quote feed is connected",
	}, []string{"venue"})

	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_wsfeed_messages_total",
		Help: "Quote messages applied to the snapshot store",
	}, []string{"venue"})

	ParseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_wsfeed_parse_errors_total",
		Help: "Feed messages that failed to parse",
	}, []string{"venue"})

	DisconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_wsfeed_disconnects_total",
		Help: "Feed connection drops",
	}, []string{"venue"})

	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_wsfeed_reconnect_attempts_total",
		Help: "Reconnection attempts across feeds",
	})
)
