package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

func buyFill(pairID string, venue types.VenueID, side types.Side, price float64, size int64) types.Fill {
	return types.Fill{
		PairID:    pairID,
		Venue:     venue,
		MarketID:  string(venue) + "-mkt",
		Side:      side,
		Price:     types.MicrosFromFloat(price),
		Size:      size,
		Timestamp: time.Now(),
	}
}

func TestTrackerAverageCostBlending(t *testing.T) {
	tr := NewTracker(zap.NewNop())

	tr.Apply(buyFill("pair-1", types.VenuePolymkt, types.SideYes, 0.40, 10))
	tr.Apply(buyFill("pair-1", types.VenuePolymkt, types.SideYes, 0.50, 10))

	pos, ok := tr.Get("pair-1")
	require.True(t, ok)

	leg := pos.Legs[types.VenuePolymkt]
	require.NotNil(t, leg)
	assert.Equal(t, int64(20), leg.NetSize)
	assert.Equal(t, types.MicrosFromFloat(0.45), leg.AvgCost)
	assert.Equal(t, types.Micros(0), leg.RealizedPnL)
}

func TestTrackerSellRealizesPnL(t *testing.T) {
	tr := NewTracker(zap.NewNop())

	tr.Apply(buyFill("pair-1", types.VenueKalshi, types.SideNo, 0.40, 100))
	// Unwind the whole leg at 0.38: realized loss of $2.00.
	tr.Apply(buyFill("pair-1", types.VenueKalshi, types.SideNo, 0.38, -100))

	pos, ok := tr.Get("pair-1")
	require.True(t, ok)

	leg := pos.Legs[types.VenueKalshi]
	assert.Equal(t, int64(0), leg.NetSize)
	assert.Equal(t, types.MicrosFromFloat(-2.00), leg.RealizedPnL)
	assert.Equal(t, types.Micros(0), leg.UnrealizedPnL)
}

func TestTrackerSettleBothLegs(t *testing.T) {
	tr := NewTracker(zap.NewNop())

	// YES at 0.42 on one venue, NO at 0.55 on the other, 50 contracts each.
	tr.Apply(buyFill("pair-1", types.VenuePolymkt, types.SideYes, 0.42, 50))
	tr.Apply(buyFill("pair-1", types.VenueKalshi, types.SideNo, 0.55, 50))

	payout, ok := tr.Settle("pair-1", true, time.Now())
	require.True(t, ok)

	// YES leg wins: $1 x 50. NO leg pays nothing.
	assert.Equal(t, types.Dollar.MulSize(50), payout)

	pos, _ := tr.Get("pair-1")
	assert.Equal(t, StatusSettled, pos.Status)

	// Net PnL: 50 - (0.42+0.55)*50 = $1.50 regardless of outcome.
	assert.Equal(t, types.MicrosFromFloat(1.50), pos.RealizedPnL())
	for _, leg := range pos.Legs {
		assert.Equal(t, int64(0), leg.NetSize)
	}
}

func TestTrackerSettleIsIdempotent(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	tr.Apply(buyFill("pair-1", types.VenuePolymkt, types.SideYes, 0.42, 50))

	_, ok := tr.Settle("pair-1", true, time.Now())
	require.True(t, ok)

	payout, ok := tr.Settle("pair-1", true, time.Now())
	assert.False(t, ok)
	assert.Equal(t, types.Micros(0), payout)
}

func TestTrackerSettleUnknownPair(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	_, ok := tr.Settle("no-such-pair", true, time.Now())
	assert.False(t, ok)
}

func TestTrackerMarkToMarket(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	tr.Apply(buyFill("pair-1", types.VenuePolymkt, types.SideYes, 0.42, 50))

	tr.MarkToMarket(types.PriceQuote{
		MarketID:  "polymkt-mkt",
		Side:      types.SideYes,
		BestBid:   types.MicrosFromFloat(0.48),
		Timestamp: time.Now(),
	})

	pos, _ := tr.Get("pair-1")
	// (0.48 - 0.42) * 50 = $3.00.
	assert.Equal(t, types.MicrosFromFloat(3.00), pos.UnrealizedPnL())
}

func TestTrackerUnhedgedExposure(t *testing.T) {
	tr := NewTracker(zap.NewNop())

	tr.Apply(buyFill("pair-1", types.VenuePolymkt, types.SideYes, 0.40, 100))
	tr.Apply(buyFill("pair-2", types.VenueKalshi, types.SideNo, 0.60, 100))

	assert.Equal(t, types.Micros(0), tr.UnhedgedExposure())

	tr.MarkUnhedged("pair-1", time.Now())
	// Only pair-1's basis counts: 0.40 * 100 = $40.
	assert.Equal(t, types.MicrosFromFloat(40.0), tr.UnhedgedExposure())

	// Settling the unhedged pair removes it from exposure.
	tr.Settle("pair-1", true, time.Now())
	assert.Equal(t, types.Micros(0), tr.UnhedgedExposure())
}

func TestTrackerOpenPairIDs(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	tr.Apply(buyFill("pair-1", types.VenuePolymkt, types.SideYes, 0.40, 10))
	tr.Apply(buyFill("pair-2", types.VenuePolymkt, types.SideYes, 0.40, 10))

	require.ElementsMatch(t, []string{"pair-1", "pair-2"}, tr.OpenPairIDs())

	tr.Settle("pair-2", false, time.Now())
	assert.Equal(t, []string{"pair-1"}, tr.OpenPairIDs())
}

func TestTrackerGetReturnsCopy(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	tr.Apply(buyFill("pair-1", types.VenuePolymkt, types.SideYes, 0.40, 10))

	pos, _ := tr.Get("pair-1")
	pos.Legs[types.VenuePolymkt].NetSize = 999

	again, _ := tr.Get("pair-1")
	assert.Equal(t, int64(10), again.Legs[types.VenuePolymkt].NetSize)
}
