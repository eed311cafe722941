package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTracked tracks how many events are in the snapshot per venue.
	EventsTracked = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "prediction_arb_snapshot_events",
		Help: "Number of events currently tracked per venue",
	}, []string{"venue"})

	// QuoteUpdatesTotal counts quote upserts into the store.
	QuoteUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_snapshot_quote_updates_total",
		Help: "Total number of quote updates applied to the snapshot store",
	})

	// QuoteUpdatesDropped counts update notifications lost to a full buffer.
	QuoteUpdatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_arb_snapshot_quote_updates_dropped_total",
		Help: "Quote update notifications dropped because the listener fell behind",
	})

	// PollErrorsTotal counts failed poll cycles by venue and kind.
	PollErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_snapshot_poll_errors_total",
		Help: "Total number of failed snapshot poll cycles",
	}, []string{"venue", "kind"})

	// PollDurationSeconds tracks poll cycle latency by venue and kind.
	PollDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prediction_arb_snapshot_poll_duration_seconds",
		Help:    "Duration of snapshot poll cycles",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue", "kind"})
)
