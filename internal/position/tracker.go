// Package position maintains per-pair exposure and PnL. The tracker is the
// single writer for each pair's arithmetic: fills and settlements for one
// pair are applied under that pair's own lock, never concurrently.
package position

import (
	"sync"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a pair position.
type Status string

const (
	StatusOpen    Status = "open"
	StatusSettled Status = "settled"
)

// Leg is the per-venue side of a pair position.
type Leg struct {
	Venue         types.VenueID
	MarketID      string
	Side          types.Side
	NetSize       int64
	AvgCost       types.Micros // average cost basis per contract
	RealizedPnL   types.Micros
	UnrealizedPnL types.Micros
}

// Position is the aggregate exposure for one matched pair.
type Position struct {
	PairID    string
	Legs      map[types.VenueID]*Leg
	Status    Status
	Unhedged  bool // set when an unwind failed and exposure needs follow-up
	OpenedAt  time.Time
	SettledAt time.Time
}

// RealizedPnL sums realized PnL across legs.
func (p *Position) RealizedPnL() types.Micros {
	var total types.Micros
	for _, leg := range p.Legs {
		total += leg.RealizedPnL
	}
	return total
}

// UnrealizedPnL sums mark-to-market PnL across legs.
func (p *Position) UnrealizedPnL() types.Micros {
	var total types.Micros
	for _, leg := range p.Legs {
		total += leg.UnrealizedPnL
	}
	return total
}

type entry struct {
	mu  sync.Mutex // serializes all writes for this pair
	pos Position
}

// Tracker tracks positions per pair. It consumes fill events one-way and
// never mutates order or opportunity state.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *zap.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

func (t *Tracker) entryFor(pairID string, now time.Time) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[pairID]
	if !ok {
		e = &entry{pos: Position{
			PairID:   pairID,
			Legs:     make(map[types.VenueID]*Leg),
			Status:   StatusOpen,
			OpenedAt: now,
		}}
		t.entries[pairID] = e
	}
	return e
}

// Apply folds a fill into the pair's position. Buys move the average cost
// basis; sells (unwinds) realize PnL against it.
func (t *Tracker) Apply(fill types.Fill) {
	e := t.entryFor(fill.PairID, fill.Timestamp)

	e.mu.Lock()
	defer e.mu.Unlock()

	leg, ok := e.pos.Legs[fill.Venue]
	if !ok {
		leg = &Leg{Venue: fill.Venue, MarketID: fill.MarketID, Side: fill.Side}
		e.pos.Legs[fill.Venue] = leg
	}

	if fill.Size >= 0 {
		// Buy: blend into the average cost basis. Integer arithmetic in
		// micro-units; the division truncates sub-micro remainders.
		newSize := leg.NetSize + fill.Size
		if newSize > 0 {
			leg.AvgCost = types.Micros(
				(int64(leg.AvgCost)*leg.NetSize + int64(fill.Price)*fill.Size) / newSize)
		}
		leg.NetSize = newSize
	} else {
		// Sell: realize PnL against the existing basis.
		sold := -fill.Size
		leg.RealizedPnL += (fill.Price - leg.AvgCost).MulSize(sold)
		leg.NetSize -= sold
		if leg.NetSize <= 0 {
			leg.NetSize = 0
			leg.UnrealizedPnL = 0
		}
	}

	FillsAppliedTotal.WithLabelValues(string(fill.Venue)).Inc()

	t.logger.Info("fill-applied",
		zap.String("pair-id", fill.PairID),
		zap.String("venue", string(fill.Venue)),
		zap.String("side", string(fill.Side)),
		zap.Int64("size", fill.Size),
		zap.String("price", fill.Price.String()),
		zap.Int64("net-size", leg.NetSize),
		zap.String("avg-cost", leg.AvgCost.String()))
}

// MarkUnhedged flags a pair whose unwind failed: one leg is filled, the
// other is not, and the exposure needs manual or automated follow-up.
func (t *Tracker) MarkUnhedged(pairID string, now time.Time) {
	e := t.entryFor(pairID, now)

	e.mu.Lock()
	e.pos.Unhedged = true
	e.mu.Unlock()

	UnhedgedPairs.Inc()
	t.logger.Warn("pair-marked-unhedged", zap.String("pair-id", pairID))
}

// MarkToMarket recomputes unrealized PnL for every open leg holding the
// given market, valued at the quote's best bid.
func (t *Tracker) MarkToMarket(quote types.PriceQuote) {
	t.mu.RLock()
	entries := make([]*entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.pos.Status == StatusOpen {
			for _, leg := range e.pos.Legs {
				if leg.MarketID == quote.MarketID && leg.Side == quote.Side && leg.NetSize > 0 {
					leg.UnrealizedPnL = (quote.BestBid - leg.AvgCost).MulSize(leg.NetSize)
				}
			}
		}
		e.mu.Unlock()
	}
}

// Settle realizes a pair's final PnL from a resolved outcome: winning legs
// pay $1 per contract, losing legs pay nothing. Returns the total payout.
func (t *Tracker) Settle(pairID string, outcomeYes bool, now time.Time) (types.Micros, bool) {
	t.mu.RLock()
	e, ok := t.entries[pairID]
	t.mu.RUnlock()
	if !ok {
		return 0, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pos.Status != StatusOpen {
		return 0, false
	}

	var payout types.Micros
	for _, leg := range e.pos.Legs {
		if leg.NetSize <= 0 {
			continue
		}
		won := (leg.Side == types.SideYes) == outcomeYes
		var legPayout types.Micros
		if won {
			legPayout = types.Dollar.MulSize(leg.NetSize)
		}
		leg.RealizedPnL += legPayout - leg.AvgCost.MulSize(leg.NetSize)
		leg.UnrealizedPnL = 0
		leg.NetSize = 0
		payout += legPayout
	}

	e.pos.Status = StatusSettled
	e.pos.SettledAt = now

	PositionsSettledTotal.Inc()
	RealizedPnLMicros.Add(float64(e.pos.RealizedPnL()))

	t.logger.Info("position-settled",
		zap.String("pair-id", pairID),
		zap.Bool("outcome-yes", outcomeYes),
		zap.String("payout", payout.String()),
		zap.String("realized-pnl", e.pos.RealizedPnL().String()))

	return payout, true
}

// Get returns a copy of a pair's position.
func (t *Tracker) Get(pairID string) (Position, bool) {
	t.mu.RLock()
	e, ok := t.entries[pairID]
	t.mu.RUnlock()
	if !ok {
		return Position{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return clonePosition(&e.pos), true
}

// OpenPairIDs returns the ids of all pairs with open positions.
func (t *Tracker) OpenPairIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for id, e := range t.entries {
		e.mu.Lock()
		open := e.pos.Status == StatusOpen
		e.mu.Unlock()
		if open {
			out = append(out, id)
		}
	}
	return out
}

// All returns copies of every tracked position.
func (t *Tracker) All() []Position {
	t.mu.RLock()
	entries := make([]*entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	out := make([]Position, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, clonePosition(&e.pos))
		e.mu.Unlock()
	}
	return out
}

// UnhedgedExposure returns the total cost basis currently held in unhedged
// pairs. The risk breaker gates new executions on this.
func (t *Tracker) UnhedgedExposure() types.Micros {
	var total types.Micros
	for _, pos := range t.All() {
		if !pos.Unhedged || pos.Status != StatusOpen {
			continue
		}
		for _, leg := range pos.Legs {
			total += leg.AvgCost.MulSize(leg.NetSize)
		}
	}
	return total
}

func clonePosition(p *Position) Position {
	out := *p
	out.Legs = make(map[types.VenueID]*Leg, len(p.Legs))
	for v, leg := range p.Legs {
		cp := *leg
		out.Legs[v] = &cp
	}
	return out
}
