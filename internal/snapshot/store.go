// Package snapshot holds the latest known event and quote state per venue.
// The store is written only by the venue pollers and the websocket feed;
// everything downstream reads eventually-consistent copies.
package snapshot

import (
	"sync"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// Store is the market snapshot store.
type Store struct {
	mu     sync.RWMutex
	events map[types.VenueID]map[string]types.Event // venue -> event id -> event
	quotes map[string]map[types.Side]types.PriceQuote
	logger *zap.Logger

	updateChan chan string // market ids with fresh quotes, coalesced by buffer
	listeners  []func(types.PriceQuote)
}

// New creates an empty snapshot store.
func New(logger *zap.Logger) *Store {
	return &Store{
		events: make(map[types.VenueID]map[string]types.Event),
		quotes: make(map[string]map[types.Side]types.PriceQuote),
		logger: logger,
		// Buffer sized for bursty quote refreshes; sends are non-blocking.
		updateChan: make(chan string, 10000),
	}
}

// OnQuote registers a callback invoked for every quote that is accepted
// into the store. Register before the first UpsertQuote; registration is
// not synchronized with writers.
func (s *Store) OnQuote(fn func(types.PriceQuote)) {
	s.listeners = append(s.listeners, fn)
}

// SetEvents replaces the full event set for a venue.
func (s *Store) SetEvents(venue types.VenueID, events []types.Event) {
	byID := make(map[string]types.Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	s.mu.Lock()
	s.events[venue] = byID
	s.mu.Unlock()

	EventsTracked.WithLabelValues(string(venue)).Set(float64(len(events)))
	s.logger.Debug("events-refreshed",
		zap.String("venue", string(venue)),
		zap.Int("count", len(events)))
}

// Events returns a copy of the current event set for a venue.
func (s *Store) Events(venue types.VenueID) []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Event, 0, len(s.events[venue]))
	for _, ev := range s.events[venue] {
		out = append(out, ev)
	}
	return out
}

// Event looks up a single event by venue and id.
func (s *Store) Event(venue types.VenueID, id string) (types.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[venue][id]
	return ev, ok
}

// UpsertQuote stores a fresh quote and signals listeners. Quotes are
// immutable values; a newer timestamp supersedes, never mutates.
func (s *Store) UpsertQuote(q types.PriceQuote) {
	s.mu.Lock()
	bySide, ok := s.quotes[q.MarketID]
	if !ok {
		bySide = make(map[types.Side]types.PriceQuote, 2)
		s.quotes[q.MarketID] = bySide
	}
	prev, had := bySide[q.Side]
	if had && prev.Timestamp.After(q.Timestamp) {
		// A poller raced the websocket feed; keep the newer quote.
		s.mu.Unlock()
		return
	}
	bySide[q.Side] = q
	s.mu.Unlock()

	QuoteUpdatesTotal.Inc()

	for _, fn := range s.listeners {
		fn(q)
	}

	select {
	case s.updateChan <- q.MarketID:
	default:
		QuoteUpdatesDropped.Inc()
	}
}

// Quote returns the latest quote for one side of a market.
func (s *Store) Quote(marketID string, side types.Side) (types.PriceQuote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[marketID][side]
	return q, ok
}

// QuoteAge returns how old the freshest side of a market's quotes is.
// Returns false if no quote has ever been seen.
func (s *Store) QuoteAge(marketID string, now time.Time) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySide, ok := s.quotes[marketID]
	if !ok || len(bySide) == 0 {
		return 0, false
	}

	var newest time.Time
	for _, q := range bySide {
		if q.Timestamp.After(newest) {
			newest = q.Timestamp
		}
	}
	return now.Sub(newest), true
}

// UpdateChan delivers market ids whose quotes changed. Listeners must keep
// up; slow consumers lose notifications, not data.
func (s *Store) UpdateChan() <-chan string {
	return s.updateChan
}
