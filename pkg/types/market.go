package types

import "time"

// VenueID identifies one of the two venues the engine trades across.
type VenueID string

const (
	// VenuePolymkt is the decentralized, blockchain-settled venue.
	VenuePolymkt VenueID = "polymkt"
	// VenueKalshi is the centralized, REST-based venue.
	VenueKalshi VenueID = "kalshi"
)

// EventStatus is the lifecycle state of a venue event.
type EventStatus string

const (
	EventOpen     EventStatus = "open"
	EventClosed   EventStatus = "closed"
	EventResolved EventStatus = "resolved"
)

// Event is a venue-local question with a resolution date and a binary market.
type Event struct {
	Venue     VenueID
	ID        string // venue-assigned external id
	Title     string
	Category  string
	ExpiresAt time.Time
	Status    EventStatus
	Markets   []Market
}

// Active reports whether the event is still tradeable.
func (e *Event) Active() bool {
	return e.Status == EventOpen
}

// BinaryMarket returns the event's single YES/NO market, or nil if the
// venue returned something other than a binary market.
func (e *Event) BinaryMarket() *Market {
	if len(e.Markets) != 1 {
		return nil
	}
	return &e.Markets[0]
}

// Market is a binary YES/NO market inside an event.
type Market struct {
	ID      string
	EventID string
}

// Side is a binary market outcome side.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Opposite returns the other side of a binary market.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// PriceQuote is an immutable best bid/ask snapshot for one side of a market.
// Newer quotes supersede older ones; a quote is never mutated in place.
type PriceQuote struct {
	MarketID  string
	Side      Side
	BestBid   Micros
	BestAsk   Micros
	Size      int64 // contracts available at the best ask
	Timestamp time.Time
}

// Age returns how stale the quote is relative to now.
func (q *PriceQuote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}

// Resolution is a venue's report of an event's final outcome.
type Resolution struct {
	Resolved bool
	Outcome  bool // true = YES, meaningful only when Resolved
}
