package arbitrage

import (
	"fmt"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"github.com/google/uuid"
)

// OpportunityState is the lifecycle state of an arbitrage opportunity.
type OpportunityState string

const (
	StateDetected  OpportunityState = "detected"
	StateValidated OpportunityState = "validated"
	StateExecuting OpportunityState = "executing"
	StateClosed    OpportunityState = "closed"
	StateExpired   OpportunityState = "expired"
	StateAborted   OpportunityState = "aborted"
)

// Terminal reports whether the state admits no further transitions.
func (s OpportunityState) Terminal() bool {
	switch s {
	case StateClosed, StateExpired, StateAborted:
		return true
	}
	return false
}

// validTransitions enumerates the opportunity state machine edges.
var validTransitions = map[OpportunityState][]OpportunityState{
	StateDetected:  {StateValidated, StateExpired},
	StateValidated: {StateExecuting, StateExpired},
	StateExecuting: {StateClosed, StateAborted},
}

// Leg describes one side of the arbitrage: which venue buys which outcome.
type Leg struct {
	Venue    types.VenueID
	MarketID string
	Side     types.Side
	AskPrice types.Micros
	AskSize  int64
}

// Opportunity is a detected cross-venue price inefficiency. Created by the
// detector, mutated only by the executor, archived on terminal state.
type Opportunity struct {
	ID           string
	PairID       string
	YesLeg       Leg // the leg buying YES
	NoLeg        Leg // the leg buying NO
	CombinedCost types.Micros // YES ask + NO ask, per contract
	Fees         types.Micros // estimated fees per contract
	Margin       types.Micros // 1.0 - combined - fees, per contract
	SizeCap      int64
	// ExpectedProfit = Margin * SizeCap; the ranking key.
	ExpectedProfit types.Micros
	DetectedAt     time.Time
	State          OpportunityState
}

// NewOpportunity builds an opportunity from a chosen leg assignment.
func NewOpportunity(pairID string, yesLeg, noLeg Leg, fees types.Micros, maxPositionSize int64, now time.Time) *Opportunity {
	combined := yesLeg.AskPrice + noLeg.AskPrice
	margin := types.Dollar - combined - fees

	sizeCap := yesLeg.AskSize
	if noLeg.AskSize < sizeCap {
		sizeCap = noLeg.AskSize
	}
	if maxPositionSize < sizeCap {
		sizeCap = maxPositionSize
	}

	return &Opportunity{
		ID:             uuid.New().String(),
		PairID:         pairID,
		YesLeg:         yesLeg,
		NoLeg:          noLeg,
		CombinedCost:   combined,
		Fees:           fees,
		Margin:         margin,
		SizeCap:        sizeCap,
		ExpectedProfit: margin.MulSize(sizeCap),
		DetectedAt:     now,
		State:          StateDetected,
	}
}

// Transition moves the opportunity to a new state, rejecting invalid edges.
func (o *Opportunity) Transition(to OpportunityState) error {
	for _, allowed := range validTransitions[o.State] {
		if allowed == to {
			o.State = to
			return nil
		}
	}
	return fmt.Errorf("invalid opportunity transition %s -> %s", o.State, to)
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] pair=%s YES@%s(%s) NO@%s(%s) margin=%s cap=%d expected=%s",
		o.ID[:8],
		o.PairID,
		o.YesLeg.AskPrice, o.YesLeg.Venue,
		o.NoLeg.AskPrice, o.NoLeg.Venue,
		o.Margin,
		o.SizeCap,
		o.ExpectedProfit,
	)
}
