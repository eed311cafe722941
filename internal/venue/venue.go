// Package venue defines the narrow contracts the engine core consumes from
// the two trading venues. Clients live in subpackages; the core only sees
// these interfaces.
package venue

import (
	"context"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

// DataClient fetches events and quotes from a venue.
type DataClient interface {
	Venue() types.VenueID

	// FetchEvents returns the venue's currently listed binary events.
	FetchEvents(ctx context.Context) ([]types.Event, error)

	// FetchQuotes returns the latest best bid/ask for the given markets.
	FetchQuotes(ctx context.Context, marketIDs []string) ([]types.PriceQuote, error)
}

// OrderRequest describes one leg order to submit.
type OrderRequest struct {
	MarketID   string
	Side       types.Side
	Action     Action
	LimitPrice types.Micros
	Size       int64
}

// Action is the order direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// OrderResult is a venue's definitive report for a submitted order.
// PartiallyFilled is reported distinctly from Filled.
type OrderResult struct {
	OrderID    string
	FilledSize int64
	AvgPrice   types.Micros
	State      types.OrderState
}

// OrderClient submits and cancels orders on a venue.
type OrderClient interface {
	Venue() types.VenueID
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// SettlementClient reports event resolution status.
type SettlementClient interface {
	FetchResolution(ctx context.Context, eventID string) (*types.Resolution, error)
}
