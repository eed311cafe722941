// Package arbitrage detects exploitable price spreads across matched pairs.
// A spread is exploitable when buying YES on one venue and NO on the other
// costs strictly less than the guaranteed $1 payout minus fees and margin.
package arbitrage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crossvenue/prediction-arb/internal/matcher"
	"github.com/crossvenue/prediction-arb/internal/snapshot"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// Storage is the interface for persisting opportunities.
type Storage interface {
	StoreOpportunity(ctx context.Context, opp *Opportunity) error
}

// Config holds detector configuration.
type Config struct {
	MinMargin       types.Micros
	EstimatedFees   types.Micros
	MaxPositionSize int64
	MinQuoteSize    int64
	StaleQuoteAfter time.Duration
	SweepInterval   time.Duration
	Logger          *zap.Logger
}

// Detector evaluates matched pairs against live quotes and emits ranked
// opportunities.
type Detector struct {
	pairs           *matcher.PairStore
	store           *snapshot.Store
	storage         Storage
	cfg             Config
	logger          *zap.Logger
	opportunityChan chan *Opportunity
	ctx             context.Context
	wg              sync.WaitGroup
}

// New creates a detector.
func New(cfg Config, pairs *matcher.PairStore, store *snapshot.Store, storage Storage) *Detector {
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 5 * time.Second
	}
	return &Detector{
		pairs:           pairs,
		store:           store,
		storage:         storage,
		cfg:             cfg,
		logger:          cfg.Logger,
		opportunityChan: make(chan *Opportunity, 50),
	}
}

// Start starts the detection loop.
func (d *Detector) Start(ctx context.Context) error {
	d.ctx = ctx
	d.logger.Info("arbitrage-detector-starting",
		zap.String("min-margin", d.cfg.MinMargin.String()),
		zap.String("estimated-fees", d.cfg.EstimatedFees.String()),
		zap.Int64("max-position-size", d.cfg.MaxPositionSize))

	d.wg.Add(1)
	go d.detectionLoop()

	return nil
}

// detectionLoop re-evaluates pairs as their quotes refresh, with a
// periodic ranked sweep over all active pairs as a safety net for dropped
// update notifications.
func (d *Detector) detectionLoop() {
	defer d.wg.Done()

	sweepTicker := time.NewTicker(d.cfg.SweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Info("arbitrage-detector-stopping")
			close(d.opportunityChan)
			return
		case marketID := <-d.store.UpdateChan():
			pair, ok := d.pairs.PairForMarket(marketID)
			if !ok {
				continue
			}

			start := time.Now()
			d.evaluateAndEmit(pair, time.Now())
			DetectionDurationSeconds.Observe(time.Since(start).Seconds())
		case <-sweepTicker.C:
			d.Sweep(time.Now())
		}
	}
}

// Sweep evaluates every active pair and emits the results ranked by
// expected profit.
func (d *Detector) Sweep(now time.Time) []*Opportunity {
	var opps []*Opportunity
	for _, pair := range d.pairs.ActivePairs() {
		opp, ok := d.Evaluate(pair, now)
		if !ok {
			continue
		}
		opps = append(opps, opp)
	}

	sort.Slice(opps, func(i, j int) bool {
		return opps[i].ExpectedProfit > opps[j].ExpectedProfit
	})

	for _, opp := range opps {
		d.emit(opp)
	}
	return opps
}

func (d *Detector) evaluateAndEmit(pair matcher.Pair, now time.Time) {
	opp, ok := d.Evaluate(pair, now)
	if !ok {
		return
	}
	d.emit(opp)
}

// Evaluate checks one pair for an exploitable spread. Both leg assignments
// are priced and the cheaper combination wins.
func (d *Detector) Evaluate(pair matcher.Pair, now time.Time) (*Opportunity, bool) {
	return d.evaluate(pair, now, true)
}

// record gates the detection counters so a pre-execution recheck of an
// already-counted opportunity does not inflate them.
func (d *Detector) evaluate(pair matcher.Pair, now time.Time, record bool) (*Opportunity, bool) {
	yesA, okYesA := d.freshQuote(pair.MarketAID, types.SideYes, now)
	noA, okNoA := d.freshQuote(pair.MarketAID, types.SideNo, now)
	yesB, okYesB := d.freshQuote(pair.MarketBID, types.SideYes, now)
	noB, okNoB := d.freshQuote(pair.MarketBID, types.SideNo, now)

	// Assignment 1: YES on venue A, NO on venue B.
	// Assignment 2: NO on venue A, YES on venue B.
	var best *Opportunity
	if okYesA && okNoB {
		best = d.buildIfCheaper(best, pair, yesA, noB, types.VenuePolymkt, types.VenueKalshi, now)
	}
	if okNoA && okYesB {
		best = d.buildIfCheaper(best, pair, yesB, noA, types.VenueKalshi, types.VenuePolymkt, now)
	}

	if best == nil {
		if record {
			OpportunitiesRejectedTotal.WithLabelValues("no_fresh_quotes").Inc()
		}
		return nil, false
	}

	// Strictly greater than: margin equal to the threshold is not an edge.
	if best.Margin <= d.cfg.MinMargin {
		if record {
			OpportunitiesRejectedTotal.WithLabelValues("below_margin").Inc()
		}
		return nil, false
	}

	if best.SizeCap <= 0 {
		if record {
			OpportunitiesRejectedTotal.WithLabelValues("no_size").Inc()
		}
		return nil, false
	}

	// A book too thin to fill is noise, not an opportunity.
	if best.SizeCap < d.cfg.MinQuoteSize {
		if record {
			OpportunitiesRejectedTotal.WithLabelValues("below_min_size").Inc()
		}
		return nil, false
	}

	if record {
		OpportunitiesDetectedTotal.Inc()
		OpportunityMarginMicros.Observe(float64(best.Margin))
		OpportunitySize.Observe(float64(best.SizeCap))
	}

	return best, true
}

// buildIfCheaper constructs an opportunity for one leg assignment and keeps
// whichever of the two assignments is cheaper.
func (d *Detector) buildIfCheaper(
	current *Opportunity,
	pair matcher.Pair,
	yesQuote, noQuote types.PriceQuote,
	yesVenue, noVenue types.VenueID,
	now time.Time,
) *Opportunity {
	if yesQuote.BestAsk <= 0 || noQuote.BestAsk <= 0 {
		return current
	}

	yesLeg := Leg{
		Venue:    yesVenue,
		MarketID: yesQuote.MarketID,
		Side:     types.SideYes,
		AskPrice: yesQuote.BestAsk,
		AskSize:  yesQuote.Size,
	}
	noLeg := Leg{
		Venue:    noVenue,
		MarketID: noQuote.MarketID,
		Side:     types.SideNo,
		AskPrice: noQuote.BestAsk,
		AskSize:  noQuote.Size,
	}

	candidate := NewOpportunity(pair.ID, yesLeg, noLeg, d.cfg.EstimatedFees, d.cfg.MaxPositionSize, now)
	if current == nil || candidate.CombinedCost < current.CombinedCost {
		return candidate
	}
	return current
}

// Revalidate re-checks an opportunity immediately before execution. Quotes
// may have moved since detection; a stale or shrunken spread expires the
// opportunity instead of risking capital.
func (d *Detector) Revalidate(opp *Opportunity, now time.Time) error {
	pair, ok := d.pairs.Get(opp.PairID)
	if !ok || !pair.Active {
		_ = opp.Transition(StateExpired)
		OpportunitiesExpiredTotal.WithLabelValues("pair_inactive").Inc()
		return &types.StaleDataError{MarketID: opp.YesLeg.MarketID, Age: "pair retired"}
	}

	fresh, ok := d.evaluate(pair, now, false)
	if !ok {
		_ = opp.Transition(StateExpired)
		OpportunitiesExpiredTotal.WithLabelValues("spread_gone").Inc()
		return &types.StaleDataError{MarketID: opp.YesLeg.MarketID, Age: "spread no longer exploitable"}
	}

	// Adopt the freshly observed prices and size; execution must use what
	// the market shows now, not what detection saw.
	opp.YesLeg = fresh.YesLeg
	opp.NoLeg = fresh.NoLeg
	opp.CombinedCost = fresh.CombinedCost
	opp.Margin = fresh.Margin
	opp.SizeCap = fresh.SizeCap
	opp.ExpectedProfit = fresh.ExpectedProfit

	return opp.Transition(StateValidated)
}

// freshQuote returns a quote only if it is within the staleness window.
func (d *Detector) freshQuote(marketID string, side types.Side, now time.Time) (types.PriceQuote, bool) {
	q, ok := d.store.Quote(marketID, side)
	if !ok {
		return types.PriceQuote{}, false
	}
	if q.Age(now) > d.cfg.StaleQuoteAfter {
		return types.PriceQuote{}, false
	}
	return q, true
}

// emit stores and publishes an opportunity without blocking the loop.
func (d *Detector) emit(opp *Opportunity) {
	if d.storage != nil {
		err := d.storage.StoreOpportunity(d.ctx, opp)
		if err != nil {
			d.logger.Error("failed-to-store-opportunity",
				zap.String("opportunity-id", opp.ID),
				zap.Error(err))
		}
	}

	select {
	case d.opportunityChan <- opp:
		d.logger.Info("arbitrage-opportunity-detected",
			zap.String("opportunity-id", opp.ID),
			zap.String("pair-id", opp.PairID),
			zap.String("margin", opp.Margin.String()),
			zap.Int64("size-cap", opp.SizeCap),
			zap.String("expected-profit", opp.ExpectedProfit.String()))
	default:
		d.logger.Warn("opportunity-channel-full", zap.String("pair-id", opp.PairID))
	}
}

// OpportunityChan returns the channel for receiving opportunities.
func (d *Detector) OpportunityChan() <-chan *Opportunity {
	return d.opportunityChan
}

// Close waits for the detection loop to drain.
func (d *Detector) Close() error {
	d.logger.Info("closing-arbitrage-detector")
	d.wg.Wait()
	d.logger.Info("arbitrage-detector-closed")
	return nil
}
