// Package settlement reconciles resolved events against open positions.
// Both venues must report the same outcome before any payout is credited;
// a disagreement is surfaced and the position stays open.
package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/crossvenue/prediction-arb/internal/matcher"
	"github.com/crossvenue/prediction-arb/internal/position"
	"github.com/crossvenue/prediction-arb/internal/venue"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// Record is the durable outcome of reconciling one pair.
type Record struct {
	PairID    string
	EventAID  string
	EventBID  string
	OutcomeA  bool
	OutcomeB  bool
	Agreement bool
	Payout    types.Micros
	SettledAt time.Time
}

// Storage persists settlement records.
type Storage interface {
	StoreSettlement(ctx context.Context, rec *Record) error
}

// Config holds reconciler configuration.
type Config struct {
	PollInterval time.Duration
	ClientA      venue.SettlementClient
	ClientB      venue.SettlementClient
	Pairs        *matcher.PairStore
	Tracker      *position.Tracker
	Storage      Storage
	Logger       *zap.Logger
}

// Reconciler polls resolution status for pairs holding open positions.
type Reconciler struct {
	cfg *Config
	wg  sync.WaitGroup

	mu         sync.Mutex
	mismatched map[string]struct{} // pair ids already recorded as mismatched
}

// New creates a reconciler.
func New(cfg *Config) *Reconciler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	return &Reconciler{
		cfg:        cfg,
		mismatched: make(map[string]struct{}),
	}
}

// Start launches the reconciliation loop.
func (r *Reconciler) Start(ctx context.Context) error {
	r.cfg.Logger.Info("reconciler-starting",
		zap.Duration("poll-interval", r.cfg.PollInterval))

	r.wg.Add(1)
	go r.loop(ctx)

	return nil
}

// Close waits for the loop to exit.
func (r *Reconciler) Close() {
	r.wg.Wait()
}

func (r *Reconciler) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.cfg.Logger.Info("reconciler-stopping")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce reconciles every pair with an open position. Unresolved and
// half-resolved pairs are left alone and picked up on the next tick.
func (r *Reconciler) RunOnce(ctx context.Context) {
	start := time.Now()
	defer func() {
		ReconcileRunDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	for _, pairID := range r.cfg.Tracker.OpenPairIDs() {
		if r.isMismatched(pairID) {
			// Already recorded; the position stays open for investigation
			// but re-polling would only duplicate the record.
			continue
		}
		pair, ok := r.cfg.Pairs.Get(pairID)
		if !ok {
			continue
		}
		if err := r.reconcilePair(ctx, pair); err != nil {
			r.cfg.Logger.Warn("pair-reconcile-failed",
				zap.String("pair-id", pairID),
				zap.Error(err))
		}
	}
}

func (r *Reconciler) isMismatched(pairID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.mismatched[pairID]
	return ok
}

func (r *Reconciler) reconcilePair(ctx context.Context, pair matcher.Pair) error {
	resA, err := r.cfg.ClientA.FetchResolution(ctx, pair.EventAID)
	if err != nil {
		ResolutionFetchErrorsTotal.WithLabelValues(string(types.VenuePolymkt)).Inc()
		return err
	}
	resB, err := r.cfg.ClientB.FetchResolution(ctx, pair.EventBID)
	if err != nil {
		ResolutionFetchErrorsTotal.WithLabelValues(string(types.VenueKalshi)).Inc()
		return err
	}

	if !resA.Resolved || !resB.Resolved {
		// One side resolving first is routine. Wait for both.
		PairsAwaitingResolution.Set(float64(len(r.cfg.Tracker.OpenPairIDs())))
		return nil
	}

	rec := &Record{
		PairID:    pair.ID,
		EventAID:  pair.EventAID,
		EventBID:  pair.EventBID,
		OutcomeA:  resA.Outcome,
		OutcomeB:  resB.Outcome,
		Agreement: resA.Outcome == resB.Outcome,
		SettledAt: time.Now(),
	}

	if !rec.Agreement {
		r.mu.Lock()
		r.mismatched[pair.ID] = struct{}{}
		r.mu.Unlock()
		MismatchesTotal.Inc()
		mismatch := &types.SettlementMismatchError{
			PairID:   pair.ID,
			OutcomeA: resA.Outcome,
			OutcomeB: resB.Outcome,
		}
		r.cfg.Logger.Error("settlement-outcome-mismatch",
			zap.String("pair-id", pair.ID),
			zap.Bool("outcome-a", resA.Outcome),
			zap.Bool("outcome-b", resB.Outcome),
			zap.Error(mismatch))
		if r.cfg.Storage != nil {
			if err := r.cfg.Storage.StoreSettlement(ctx, rec); err != nil {
				r.cfg.Logger.Warn("settlement-store-failed", zap.Error(err))
			}
		}
		// Position stays open for investigation; do not credit either side.
		return mismatch
	}

	payout, settled := r.cfg.Tracker.Settle(pair.ID, resA.Outcome, rec.SettledAt)
	if !settled {
		return nil
	}
	rec.Payout = payout

	SettlementsTotal.Inc()
	PayoutMicrosTotal.Add(float64(payout))

	r.cfg.Logger.Info("pair-settled",
		zap.String("pair-id", pair.ID),
		zap.Bool("outcome-yes", resA.Outcome),
		zap.String("payout", payout.String()))

	if r.cfg.Storage != nil {
		if err := r.cfg.Storage.StoreSettlement(ctx, rec); err != nil {
			r.cfg.Logger.Warn("settlement-store-failed", zap.Error(err))
		}
	}

	// A settled pair stops producing opportunities.
	r.cfg.Pairs.Retire(pair.ID, rec.SettledAt)
	return nil
}
