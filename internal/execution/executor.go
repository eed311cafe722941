// Package execution turns validated opportunities into orders on both
// venues. The protocol is fail-fast: the riskier leg goes first, the second
// leg is sized to the first leg's actual fill, and a failed second leg is
// unwound immediately rather than left open.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/position"
	"github.com/crossvenue/prediction-arb/internal/venue"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// Mode selects paper or live order submission.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Gate approves or refuses new executions. The risk breaker implements it.
type Gate interface {
	Allow() bool
}

// Result is the outcome of one execution attempt.
type Result struct {
	Opportunity *arbitrage.Opportunity
	Orders      []*types.Order
	Fills       []types.Fill
	Unwound     bool
	Unhedged    bool
	Err         error
}

// Config holds executor configuration.
type Config struct {
	Mode               string
	SlippageTolerance  types.Micros
	Retry              venue.RetryConfig
	OpportunityChannel <-chan *arbitrage.Opportunity
	Clients            map[types.VenueID]venue.OrderClient
	Detector           *arbitrage.Detector
	Tracker            *position.Tracker
	Gate               Gate
	Logger             *zap.Logger
}

// Executor consumes opportunities and runs the two-phase order protocol.
type Executor struct {
	cfg   *Config
	locks *pairLocks
	wg    sync.WaitGroup
}

// New creates an executor.
func New(cfg *Config) *Executor {
	return &Executor{
		cfg:   cfg,
		locks: newPairLocks(),
	}
}

// Start launches the execution loop.
func (e *Executor) Start(ctx context.Context) error {
	e.cfg.Logger.Info("executor-starting", zap.String("mode", e.cfg.Mode))

	e.wg.Add(1)
	go e.executionLoop(ctx)

	return nil
}

// Close waits for the execution loop to drain.
func (e *Executor) Close() {
	e.wg.Wait()
}

func (e *Executor) executionLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			e.cfg.Logger.Info("executor-stopping")
			return
		case opp, ok := <-e.cfg.OpportunityChannel:
			if !ok {
				e.cfg.Logger.Info("opportunity-channel-closed")
				return
			}

			start := time.Now()
			res := e.Execute(ctx, opp)
			ExecutionDurationSeconds.Observe(time.Since(start).Seconds())

			if res.Err != nil {
				e.cfg.Logger.Warn("execution-failed",
					zap.String("opportunity-id", opp.ID),
					zap.String("pair-id", opp.PairID),
					zap.Bool("unwound", res.Unwound),
					zap.Bool("unhedged", res.Unhedged),
					zap.Error(res.Err))
			}
		}
	}
}

// Execute runs the full protocol for one opportunity. At most one execution
// per pair runs at a time; a second opportunity for a busy pair is skipped,
// not queued, because its prices will be stale by the time the lock frees.
func (e *Executor) Execute(ctx context.Context, opp *arbitrage.Opportunity) *Result {
	res := &Result{Opportunity: opp}

	if e.cfg.Gate != nil && !e.cfg.Gate.Allow() {
		ExecutionsSkippedTotal.WithLabelValues("breaker-open").Inc()
		res.Err = fmt.Errorf("execution gated for pair %s", opp.PairID)
		return res
	}

	if !e.locks.tryLock(opp.PairID) {
		ExecutionsSkippedTotal.WithLabelValues("pair-busy").Inc()
		e.cfg.Logger.Debug("pair-execution-in-flight",
			zap.String("pair-id", opp.PairID),
			zap.String("opportunity-id", opp.ID))
		res.Err = fmt.Errorf("execution already in flight for pair %s", opp.PairID)
		return res
	}
	defer e.locks.unlock(opp.PairID)

	// Prices may have moved since detection. Re-validate against the live
	// snapshot before committing capital.
	if err := e.cfg.Detector.Revalidate(opp, time.Now()); err != nil {
		ExecutionsSkippedTotal.WithLabelValues("revalidation").Inc()
		res.Err = err
		return res
	}
	if err := opp.Transition(arbitrage.StateExecuting); err != nil {
		res.Err = err
		return res
	}

	first, second := orderLegs(opp)

	e.cfg.Logger.Info("execution-starting",
		zap.String("opportunity-id", opp.ID),
		zap.String("pair-id", opp.PairID),
		zap.String("first-venue", string(first.Venue)),
		zap.String("second-venue", string(second.Venue)),
		zap.Int64("size", opp.SizeCap),
		zap.String("margin", opp.Margin.String()))

	firstOrder, err := e.submitLeg(ctx, first, opp, opp.SizeCap)
	res.Orders = append(res.Orders, firstOrder)
	if err != nil && firstOrder.FilledSize > 0 {
		// A slippage rejection can still carry a fill. That capital is at
		// risk and must be unwound, not abandoned.
		res.Fills = append(res.Fills, e.recordFill(opp, first, firstOrder, firstOrder.FilledSize))
		return e.unwind(ctx, opp, first, firstOrder, nil, res, err)
	}
	if err != nil || firstOrder.FilledSize == 0 {
		// Nothing filled, nothing at risk. Abort cleanly.
		_ = opp.Transition(arbitrage.StateAborted)
		ExecutionsTotal.WithLabelValues("aborted-first-leg").Inc()
		if err == nil {
			err = fmt.Errorf("first leg %s filled zero size", firstOrder.ID)
		}
		res.Err = err
		return res
	}

	res.Fills = append(res.Fills, e.recordFill(opp, first, firstOrder, firstOrder.FilledSize))

	// Size the hedge to what actually filled, never to the intended size.
	secondOrder, err := e.submitLeg(ctx, second, opp, firstOrder.FilledSize)
	res.Orders = append(res.Orders, secondOrder)
	if err != nil || secondOrder.FilledSize < firstOrder.FilledSize {
		return e.unwind(ctx, opp, first, firstOrder, secondOrder, res, err)
	}

	res.Fills = append(res.Fills, e.recordFill(opp, second, secondOrder, secondOrder.FilledSize))

	_ = opp.Transition(arbitrage.StateClosed)
	ExecutionsTotal.WithLabelValues("closed").Inc()
	ContractsExecuted.Add(float64(firstOrder.FilledSize))

	e.cfg.Logger.Info("execution-closed",
		zap.String("opportunity-id", opp.ID),
		zap.String("pair-id", opp.PairID),
		zap.Int64("size", firstOrder.FilledSize),
		zap.String("expected-profit", opp.Margin.MulSize(firstOrder.FilledSize).String()))

	return res
}

// unwind sells exactly the first leg's filled size back at the best bid.
// If the hedge partially filled, only the uncovered remainder is unwound.
func (e *Executor) unwind(ctx context.Context, opp *arbitrage.Opportunity, first arbitrage.Leg, firstOrder, secondOrder *types.Order, res *Result, cause error) *Result {
	defer func() { _ = opp.Transition(arbitrage.StateAborted) }()

	covered := int64(0)
	if secondOrder != nil && secondOrder.FilledSize > 0 {
		covered = secondOrder.FilledSize
		res.Fills = append(res.Fills, e.recordFill(opp, otherLeg(opp, first), secondOrder, secondOrder.FilledSize))
	}
	exposed := firstOrder.FilledSize - covered
	if exposed <= 0 {
		// The hedge filled fully before erroring, so both legs are on. There
		// is nothing to unwind and no exposure to flag.
		ExecutionsTotal.WithLabelValues("covered").Inc()
		res.Err = fmt.Errorf("leg failed after full fill: %w", cause)
		e.cfg.Logger.Warn("leg-error-after-full-fill",
			zap.String("opportunity-id", opp.ID),
			zap.String("pair-id", opp.PairID),
			zap.Error(cause))
		return res
	}

	e.cfg.Logger.Warn("leg-failed-unwinding",
		zap.String("opportunity-id", opp.ID),
		zap.String("pair-id", opp.PairID),
		zap.Int64("exposed-size", exposed),
		zap.Error(cause))

	unwindOrder, err := e.submitUnwind(ctx, first, opp, exposed)
	if unwindOrder != nil {
		res.Orders = append(res.Orders, unwindOrder)
	}
	if err != nil || unwindOrder == nil || unwindOrder.FilledSize < exposed {
		// Unwind failed. The exposure is real and must be surfaced, not
		// silently retried forever.
		e.cfg.Tracker.MarkUnhedged(opp.PairID, time.Now())
		ExecutionsTotal.WithLabelValues("unhedged").Inc()
		res.Unhedged = true
		res.Err = fmt.Errorf("unwind failed for pair %s, unhedged size %d: %w",
			opp.PairID, exposed, cause)
		e.cfg.Logger.Error("unwind-failed-position-unhedged",
			zap.String("pair-id", opp.PairID),
			zap.Int64("unhedged-size", exposed),
			zap.Error(err))
		return res
	}

	res.Fills = append(res.Fills, types.Fill{
		PairID:    opp.PairID,
		Venue:     first.Venue,
		MarketID:  first.MarketID,
		Side:      first.Side,
		Price:     unwindOrder.AvgFillPrice,
		Size:      -unwindOrder.FilledSize,
		Timestamp: time.Now(),
	})
	e.cfg.Tracker.Apply(res.Fills[len(res.Fills)-1])

	ExecutionsTotal.WithLabelValues("unwound").Inc()
	res.Unwound = true
	res.Err = fmt.Errorf("leg failed, position unwound: %w", cause)
	return res
}

// submitLeg places a buy for one leg, bounded by the retry policy.
func (e *Executor) submitLeg(ctx context.Context, leg arbitrage.Leg, opp *arbitrage.Opportunity, size int64) (*types.Order, error) {
	req := venue.OrderRequest{
		MarketID:   leg.MarketID,
		Side:       leg.Side,
		Action:     venue.ActionBuy,
		LimitPrice: leg.AskPrice + e.cfg.SlippageTolerance,
		Size:       size,
	}
	return e.submit(ctx, leg.Venue, req, opp)
}

// submitUnwind sells a previously bought leg at market via a zero-floor
// limit, accepting whatever the book pays.
func (e *Executor) submitUnwind(ctx context.Context, leg arbitrage.Leg, opp *arbitrage.Opportunity, size int64) (*types.Order, error) {
	req := venue.OrderRequest{
		MarketID:   leg.MarketID,
		Side:       leg.Side,
		Action:     venue.ActionSell,
		LimitPrice: 0,
		Size:       size,
	}
	return e.submit(ctx, leg.Venue, req, opp)
}

func (e *Executor) submit(ctx context.Context, venueID types.VenueID, req venue.OrderRequest, opp *arbitrage.Opportunity) (*types.Order, error) {
	order := newOrder(opp, venueID, req)

	if e.cfg.Mode == ModePaper {
		return e.paperFill(order, req), nil
	}

	client, ok := e.cfg.Clients[venueID]
	if !ok {
		return order, &types.ConfigurationError{
			Field:  "clients",
			Reason: fmt.Sprintf("no order client for venue %s", venueID),
		}
	}

	var result *venue.OrderResult
	err := venue.WithRetry(ctx, e.cfg.Logger, e.cfg.Retry, "submit-order", func(ctx context.Context) error {
		var err error
		result, err = client.SubmitOrder(ctx, req)
		return err
	})
	if err != nil {
		_ = order.Transition(types.OrderRejected)
		OrdersTotal.WithLabelValues(string(venueID), "rejected").Inc()
		return order, err
	}

	applyResult(order, result)

	// Fills past the limit plus tolerance are hard failures. Retrying a
	// price violation only compounds the slippage.
	if req.Action == venue.ActionBuy && order.AvgFillPrice > req.LimitPrice {
		OrdersTotal.WithLabelValues(string(venueID), "slippage").Inc()
		return order, &types.RejectedOrderError{
			Venue:   venueID,
			OrderID: order.ID,
			Reason: fmt.Sprintf("filled at %s above limit %s",
				order.AvgFillPrice.String(), req.LimitPrice.String()),
		}
	}

	OrdersTotal.WithLabelValues(string(venueID), string(order.State)).Inc()
	return order, nil
}

// paperFill simulates an immediate full fill at the limit price.
func (e *Executor) paperFill(order *types.Order, req venue.OrderRequest) *types.Order {
	_ = order.Transition(types.OrderSubmitted)
	_ = order.Transition(types.OrderFilled)
	order.FilledSize = req.Size
	if req.Action == venue.ActionSell {
		// Assume the book pays close to the quoted bid.
		order.AvgFillPrice = req.LimitPrice
	} else {
		order.AvgFillPrice = req.LimitPrice - e.cfg.SlippageTolerance
	}
	OrdersTotal.WithLabelValues(string(order.Venue), "paper").Inc()
	return order
}

func (e *Executor) recordFill(opp *arbitrage.Opportunity, leg arbitrage.Leg, order *types.Order, size int64) types.Fill {
	fill := types.Fill{
		PairID:    opp.PairID,
		Venue:     leg.Venue,
		MarketID:  leg.MarketID,
		Side:      leg.Side,
		Price:     order.AvgFillPrice,
		Size:      size,
		Timestamp: time.Now(),
	}
	e.cfg.Tracker.Apply(fill)
	return fill
}

// orderLegs returns the legs in submission order: the leg with the smaller
// quoted ask size carries more fill risk and goes first.
func orderLegs(opp *arbitrage.Opportunity) (first, second arbitrage.Leg) {
	if opp.YesLeg.AskSize <= opp.NoLeg.AskSize {
		return opp.YesLeg, opp.NoLeg
	}
	return opp.NoLeg, opp.YesLeg
}

func otherLeg(opp *arbitrage.Opportunity, leg arbitrage.Leg) arbitrage.Leg {
	if leg.Venue == opp.YesLeg.Venue {
		return opp.NoLeg
	}
	return opp.YesLeg
}
