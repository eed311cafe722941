// Package testutil holds shared fixtures and mocks for engine tests.
package testutil

import (
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

// Event builds a binary event on the given venue.
func Event(venueID types.VenueID, id, title string, expires time.Time) types.Event {
	return types.Event{
		Venue:     venueID,
		ID:        id,
		Title:     title,
		Category:  "politics",
		ExpiresAt: expires,
		Status:    types.EventOpen,
		Markets:   []types.Market{{ID: id + "-mkt", EventID: id}},
	}
}

// Quote builds a fresh price quote for one side of a market.
func Quote(marketID string, side types.Side, bid, ask float64, size int64, ts time.Time) types.PriceQuote {
	return types.PriceQuote{
		MarketID:  marketID,
		Side:      side,
		BestBid:   types.MicrosFromFloat(bid),
		BestAsk:   types.MicrosFromFloat(ask),
		Size:      size,
		Timestamp: ts,
	}
}
