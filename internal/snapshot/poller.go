package snapshot

import (
	"context"
	"time"

	"github.com/crossvenue/prediction-arb/internal/venue"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// Poller periodically refreshes one venue's events and quotes into the
// store. A failed cycle leaves the venue's snapshot stale; it never stops
// the loop or touches the other venue.
type Poller struct {
	client venue.DataClient
	store  *Store
	logger *zap.Logger
	cfg    PollerConfig
}

// PollerConfig holds poller configuration.
type PollerConfig struct {
	EventInterval time.Duration
	QuoteInterval time.Duration
	EventLimit    int // 0 = no cap
	Retry         venue.RetryConfig
	Logger        *zap.Logger
}

// NewPoller creates a poller for one venue.
func NewPoller(client venue.DataClient, store *Store, cfg PollerConfig) *Poller {
	return &Poller{
		client: client,
		store:  store,
		logger: cfg.Logger.With(zap.String("venue", string(client.Venue()))),
		cfg:    cfg,
	}
}

// Run blocks until ctx is cancelled, refreshing events and quotes on their
// own cadences.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("snapshot-poller-starting",
		zap.Duration("event-interval", p.cfg.EventInterval),
		zap.Duration("quote-interval", p.cfg.QuoteInterval))

	// Prime the event set before the first quote cycle.
	p.refreshEvents(ctx)

	eventTicker := time.NewTicker(p.cfg.EventInterval)
	defer eventTicker.Stop()
	quoteTicker := time.NewTicker(p.cfg.QuoteInterval)
	defer quoteTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("snapshot-poller-stopping")
			return ctx.Err()
		case <-eventTicker.C:
			p.refreshEvents(ctx)
		case <-quoteTicker.C:
			p.refreshQuotes(ctx)
		}
	}
}

func (p *Poller) refreshEvents(ctx context.Context) {
	start := time.Now()

	var events []types.Event
	err := venue.WithRetry(ctx, p.logger, p.cfg.Retry, "fetch-events", func(ctx context.Context) error {
		var fetchErr error
		events, fetchErr = p.client.FetchEvents(ctx)
		return fetchErr
	})
	if err != nil {
		PollErrorsTotal.WithLabelValues(string(p.client.Venue()), "events").Inc()
		p.logger.Warn("event-refresh-failed-snapshot-stale", zap.Error(err))
		return
	}

	if p.cfg.EventLimit > 0 && len(events) > p.cfg.EventLimit {
		p.logger.Debug("event-list-truncated",
			zap.Int("fetched", len(events)),
			zap.Int("limit", p.cfg.EventLimit))
		events = events[:p.cfg.EventLimit]
	}

	p.store.SetEvents(p.client.Venue(), events)
	PollDurationSeconds.WithLabelValues(string(p.client.Venue()), "events").
		Observe(time.Since(start).Seconds())
}

func (p *Poller) refreshQuotes(ctx context.Context) {
	marketIDs := p.activeMarketIDs()
	if len(marketIDs) == 0 {
		return
	}

	start := time.Now()

	var quotes []types.PriceQuote
	err := venue.WithRetry(ctx, p.logger, p.cfg.Retry, "fetch-quotes", func(ctx context.Context) error {
		var fetchErr error
		quotes, fetchErr = p.client.FetchQuotes(ctx, marketIDs)
		return fetchErr
	})
	if err != nil {
		PollErrorsTotal.WithLabelValues(string(p.client.Venue()), "quotes").Inc()
		p.logger.Warn("quote-refresh-failed-snapshot-stale", zap.Error(err))
		return
	}

	for _, q := range quotes {
		p.store.UpsertQuote(q)
	}
	PollDurationSeconds.WithLabelValues(string(p.client.Venue()), "quotes").
		Observe(time.Since(start).Seconds())
}

func (p *Poller) activeMarketIDs() []string {
	events := p.store.Events(p.client.Venue())
	ids := make([]string, 0, len(events))
	for i := range events {
		if !events[i].Active() {
			continue
		}
		if m := events[i].BinaryMarket(); m != nil {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
