package execution

import (
	"time"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/venue"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"github.com/google/uuid"
)

func newOrder(opp *arbitrage.Opportunity, venueID types.VenueID, req venue.OrderRequest) *types.Order {
	return &types.Order{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		Venue:         venueID,
		MarketID:      req.MarketID,
		Side:          req.Side,
		LimitPrice:    req.LimitPrice,
		RequestedSize: req.Size,
		State:         types.OrderPending,
		SubmittedAt:   time.Now(),
	}
}

// applyResult folds the venue's definitive report into the local order.
func applyResult(order *types.Order, result *venue.OrderResult) {
	_ = order.Transition(types.OrderSubmitted)

	order.FilledSize = result.FilledSize
	order.AvgFillPrice = result.AvgPrice

	switch {
	case result.State.Terminal():
		_ = order.Transition(result.State)
	case result.FilledSize >= order.RequestedSize:
		_ = order.Transition(types.OrderFilled)
	case result.FilledSize > 0:
		_ = order.Transition(types.OrderPartiallyFilled)
	default:
		_ = order.Transition(types.OrderRejected)
	}
}
