package arbitrage

import (
	"context"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/internal/matcher"
	"github.com/crossvenue/prediction-arb/internal/snapshot"
	"github.com/crossvenue/prediction-arb/internal/testutil"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

func newDetectorFixture(t *testing.T, cfg Config) (*Detector, *snapshot.Store, matcher.Pair) {
	t.Helper()

	expires := time.Now().Add(48 * time.Hour)
	eventA := testutil.Event(types.VenuePolymkt, "ev-a", "Will X win the election?", expires)
	eventB := testutil.Event(types.VenueKalshi, "ev-b", "Will X win the election?", expires)

	pairs := matcher.NewPairStore()
	created := pairs.Reconcile([]matcher.Candidate{
		{EventA: eventA, EventB: eventB, Confidence: 0.95},
	}, time.Now())
	require.Len(t, created, 1)

	store := snapshot.New(zap.NewNop())

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.StaleQuoteAfter == 0 {
		cfg.StaleQuoteAfter = 10 * time.Second
	}
	if cfg.MaxPositionSize == 0 {
		cfg.MaxPositionSize = 1000
	}

	return New(cfg, pairs, store, nil), store, created[0]
}

func TestDetectorEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		minMargin  float64
		fees       float64
		yesAskA    float64
		noAskB     float64
		wantOpp    bool
		wantMargin float64
	}{
		{
			name:       "exploitable-spread",
			minMargin:  0.01,
			fees:       0.02,
			yesAskA:    0.45,
			noAskB:     0.50,
			wantOpp:    true,
			wantMargin: 0.03,
		},
		{
			name:      "combined-cost-above-dollar",
			minMargin: 0.01,
			fees:      0.02,
			yesAskA:   0.60,
			noAskB:    0.45,
			wantOpp:   false,
		},
		{
			name:      "margin-equal-to-threshold-rejected",
			minMargin: 0.03,
			fees:      0.02,
			yesAskA:   0.45,
			noAskB:    0.50,
			wantOpp:   false,
		},
		{
			name:       "margin-just-above-threshold",
			minMargin:  0.03,
			fees:       0.02,
			yesAskA:    0.45,
			noAskB:     0.499999,
			wantOpp:    true,
			wantMargin: 0.030001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, store, pair := newDetectorFixture(t, Config{
				MinMargin:     types.MicrosFromFloat(tt.minMargin),
				EstimatedFees: types.MicrosFromFloat(tt.fees),
			})

			now := time.Now()
			store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, tt.yesAskA-0.01, tt.yesAskA, 100, now))
			store.UpsertQuote(testutil.Quote(pair.MarketBID, types.SideNo, tt.noAskB-0.01, tt.noAskB, 100, now))

			opp, ok := d.Evaluate(pair, now)
			if !tt.wantOpp {
				assert.False(t, ok)
				return
			}

			require.True(t, ok)
			assert.Equal(t, types.MicrosFromFloat(tt.wantMargin), opp.Margin)
			assert.Equal(t, StateDetected, opp.State)
			assert.Equal(t, types.VenuePolymkt, opp.YesLeg.Venue)
			assert.Equal(t, types.VenueKalshi, opp.NoLeg.Venue)
			assert.Equal(t, opp.Margin.MulSize(opp.SizeCap), opp.ExpectedProfit)
		})
	}
}

func TestDetectorEvaluatePicksCheaperAssignment(t *testing.T) {
	d, store, pair := newDetectorFixture(t, Config{
		MinMargin:     types.MicrosFromFloat(0.01),
		EstimatedFees: types.MicrosFromFloat(0.02),
	})

	now := time.Now()
	// Assignment 1 (YES on A, NO on B) costs 0.96 and clears no margin.
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.45, 0.46, 100, now))
	store.UpsertQuote(testutil.Quote(pair.MarketBID, types.SideNo, 0.49, 0.50, 100, now))
	// Assignment 2 (NO on A, YES on B) costs 0.94 and wins.
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideNo, 0.49, 0.50, 80, now))
	store.UpsertQuote(testutil.Quote(pair.MarketBID, types.SideYes, 0.43, 0.44, 100, now))

	opp, ok := d.Evaluate(pair, now)
	require.True(t, ok)

	assert.Equal(t, types.VenueKalshi, opp.YesLeg.Venue)
	assert.Equal(t, types.VenuePolymkt, opp.NoLeg.Venue)
	assert.Equal(t, types.MicrosFromFloat(0.94), opp.CombinedCost)
	assert.Equal(t, int64(80), opp.SizeCap)
}

func TestDetectorEvaluateSizeCap(t *testing.T) {
	d, store, pair := newDetectorFixture(t, Config{
		MinMargin:       types.MicrosFromFloat(0.01),
		EstimatedFees:   types.MicrosFromFloat(0.02),
		MaxPositionSize: 60,
	})

	now := time.Now()
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.44, 0.45, 100, now))
	store.UpsertQuote(testutil.Quote(pair.MarketBID, types.SideNo, 0.49, 0.50, 200, now))

	opp, ok := d.Evaluate(pair, now)
	require.True(t, ok)
	assert.Equal(t, int64(60), opp.SizeCap)
}

func TestDetectorEvaluateThinBookRejected(t *testing.T) {
	d, store, pair := newDetectorFixture(t, Config{
		MinMargin:     types.MicrosFromFloat(0.01),
		EstimatedFees: types.MicrosFromFloat(0.02),
		MinQuoteSize:  25,
	})

	now := time.Now()
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.44, 0.45, 20, now))
	store.UpsertQuote(testutil.Quote(pair.MarketBID, types.SideNo, 0.49, 0.50, 200, now))

	_, ok := d.Evaluate(pair, now)
	assert.False(t, ok)

	// Size at the floor fills the minimum and passes.
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.44, 0.45, 25, now))
	opp, ok := d.Evaluate(pair, now)
	require.True(t, ok)
	assert.Equal(t, int64(25), opp.SizeCap)
}

func TestDetectorEvaluateStaleQuote(t *testing.T) {
	d, store, pair := newDetectorFixture(t, Config{
		MinMargin:       types.MicrosFromFloat(0.01),
		EstimatedFees:   types.MicrosFromFloat(0.02),
		StaleQuoteAfter: 5 * time.Second,
	})

	now := time.Now()
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.44, 0.45, 100, now.Add(-time.Minute)))
	store.UpsertQuote(testutil.Quote(pair.MarketBID, types.SideNo, 0.49, 0.50, 100, now))

	_, ok := d.Evaluate(pair, now)
	assert.False(t, ok)
}

func TestDetectorSweepRanksByExpectedProfit(t *testing.T) {
	expires := time.Now().Add(48 * time.Hour)
	pairs := matcher.NewPairStore()
	created := pairs.Reconcile([]matcher.Candidate{
		{
			EventA:     testutil.Event(types.VenuePolymkt, "ev-a1", "Event one", expires),
			EventB:     testutil.Event(types.VenueKalshi, "ev-b1", "Event one", expires),
			Confidence: 0.9,
		},
		{
			EventA:     testutil.Event(types.VenuePolymkt, "ev-a2", "Event two", expires),
			EventB:     testutil.Event(types.VenueKalshi, "ev-b2", "Event two", expires),
			Confidence: 0.9,
		},
	}, time.Now())
	require.Len(t, created, 2)

	store := snapshot.New(zap.NewNop())
	d := New(Config{
		MinMargin:       types.MicrosFromFloat(0.01),
		EstimatedFees:   types.MicrosFromFloat(0.02),
		MaxPositionSize: 1000,
		StaleQuoteAfter: 10 * time.Second,
		Logger:          zap.NewNop(),
	}, pairs, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, d.Start(ctx))

	now := time.Now()
	// Pair 1: margin 0.03 on 100 contracts -> $3 expected.
	store.UpsertQuote(testutil.Quote(created[0].MarketAID, types.SideYes, 0.44, 0.45, 100, now))
	store.UpsertQuote(testutil.Quote(created[0].MarketBID, types.SideNo, 0.49, 0.50, 100, now))
	// Pair 2: margin 0.08 on 100 contracts -> $8 expected, should rank first.
	store.UpsertQuote(testutil.Quote(created[1].MarketAID, types.SideYes, 0.39, 0.40, 100, now))
	store.UpsertQuote(testutil.Quote(created[1].MarketBID, types.SideNo, 0.49, 0.50, 100, now))

	opps := d.Sweep(now)
	require.Len(t, opps, 2)
	assert.Equal(t, created[1].ID, opps[0].PairID)
	assert.Equal(t, created[0].ID, opps[1].PairID)
	assert.Greater(t, opps[0].ExpectedProfit, opps[1].ExpectedProfit)

	cancel()
	require.NoError(t, d.Close())
}

func TestDetectorRevalidateAdoptsFreshQuotes(t *testing.T) {
	d, store, pair := newDetectorFixture(t, Config{
		MinMargin:     types.MicrosFromFloat(0.01),
		EstimatedFees: types.MicrosFromFloat(0.02),
	})

	now := time.Now()
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.44, 0.45, 100, now))
	store.UpsertQuote(testutil.Quote(pair.MarketBID, types.SideNo, 0.49, 0.50, 100, now))

	opp, ok := d.Evaluate(pair, now)
	require.True(t, ok)

	// Spread tightens but stays exploitable; revalidation must adopt the
	// new prices and size.
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.45, 0.46, 40, now.Add(time.Second)))

	require.NoError(t, d.Revalidate(opp, now.Add(time.Second)))
	assert.Equal(t, StateValidated, opp.State)
	assert.Equal(t, types.MicrosFromFloat(0.46), opp.YesLeg.AskPrice)
	assert.Equal(t, int64(40), opp.SizeCap)
}

func TestDetectorRevalidateDoesNotRecountDetection(t *testing.T) {
	d, store, pair := newDetectorFixture(t, Config{
		MinMargin:     types.MicrosFromFloat(0.01),
		EstimatedFees: types.MicrosFromFloat(0.02),
	})

	now := time.Now()
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.44, 0.45, 100, now))
	store.UpsertQuote(testutil.Quote(pair.MarketBID, types.SideNo, 0.49, 0.50, 100, now))

	before := promtestutil.ToFloat64(OpportunitiesDetectedTotal)

	opp, ok := d.Evaluate(pair, now)
	require.True(t, ok)
	assert.Equal(t, before+1, promtestutil.ToFloat64(OpportunitiesDetectedTotal))

	// The recheck before execution is not a new detection.
	require.NoError(t, d.Revalidate(opp, now))
	assert.Equal(t, before+1, promtestutil.ToFloat64(OpportunitiesDetectedTotal))
}

func TestDetectorRevalidateExpiresGoneSpread(t *testing.T) {
	d, store, pair := newDetectorFixture(t, Config{
		MinMargin:     types.MicrosFromFloat(0.01),
		EstimatedFees: types.MicrosFromFloat(0.02),
	})

	now := time.Now()
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.44, 0.45, 100, now))
	store.UpsertQuote(testutil.Quote(pair.MarketBID, types.SideNo, 0.49, 0.50, 100, now))

	opp, ok := d.Evaluate(pair, now)
	require.True(t, ok)

	// YES ask jumps; combined cost now exceeds $1 and the edge is gone.
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.55, 0.56, 100, now.Add(time.Second)))

	err := d.Revalidate(opp, now.Add(time.Second))
	require.Error(t, err)
	var stale *types.StaleDataError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, StateExpired, opp.State)
}

func TestDetectorRevalidateRetiredPair(t *testing.T) {
	d, store, pair := newDetectorFixture(t, Config{
		MinMargin:     types.MicrosFromFloat(0.01),
		EstimatedFees: types.MicrosFromFloat(0.02),
	})

	now := time.Now()
	store.UpsertQuote(testutil.Quote(pair.MarketAID, types.SideYes, 0.44, 0.45, 100, now))
	store.UpsertQuote(testutil.Quote(pair.MarketBID, types.SideNo, 0.49, 0.50, 100, now))

	opp, ok := d.Evaluate(pair, now)
	require.True(t, ok)

	d.pairs.Retire(pair.ID, now)

	err := d.Revalidate(opp, now)
	require.Error(t, err)
	assert.Equal(t, StateExpired, opp.State)
}

func TestOpportunityTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []OpportunityState
		wantErr bool
	}{
		{name: "detected-validated-executing-closed", path: []OpportunityState{StateValidated, StateExecuting, StateClosed}},
		{name: "detected-validated-executing-aborted", path: []OpportunityState{StateValidated, StateExecuting, StateAborted}},
		{name: "detected-expired", path: []OpportunityState{StateExpired}},
		{name: "validated-expired", path: []OpportunityState{StateValidated, StateExpired}},
		{name: "detected-executing-skips-validated", path: []OpportunityState{StateExecuting}, wantErr: true},
		{name: "closed-is-terminal", path: []OpportunityState{StateValidated, StateExecuting, StateClosed, StateExpired}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := NewOpportunity("pair-1",
				Leg{Venue: types.VenuePolymkt, Side: types.SideYes, AskPrice: types.MicrosFromFloat(0.45), AskSize: 100},
				Leg{Venue: types.VenueKalshi, Side: types.SideNo, AskPrice: types.MicrosFromFloat(0.50), AskSize: 100},
				types.MicrosFromFloat(0.02), 1000, time.Now())

			var err error
			for _, next := range tt.path {
				err = opp.Transition(next)
				if err != nil {
					break
				}
			}
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
