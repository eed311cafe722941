package types

import (
	"fmt"
	"time"
)

// OrderState is the lifecycle state of a single venue order.
type OrderState string

const (
	OrderPending         OrderState = "pending"
	OrderSubmitted       OrderState = "submitted"
	OrderFilled          OrderState = "filled"
	OrderPartiallyFilled OrderState = "partially_filled"
	OrderRejected        OrderState = "rejected"
	OrderCancelled       OrderState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s OrderState) Terminal() bool {
	switch s {
	case OrderFilled, OrderPartiallyFilled, OrderRejected, OrderCancelled:
		return true
	}
	return false
}

// Order is one leg of an arbitrage execution on a single venue.
type Order struct {
	ID            string
	OpportunityID string
	Venue         VenueID
	MarketID      string
	Side          Side
	LimitPrice    Micros
	RequestedSize int64
	FilledSize    int64
	AvgFillPrice  Micros
	State         OrderState
	SubmittedAt   time.Time
}

// validOrderTransitions enumerates the allowed state machine edges.
var validOrderTransitions = map[OrderState][]OrderState{
	OrderPending:   {OrderSubmitted, OrderRejected, OrderCancelled},
	OrderSubmitted: {OrderFilled, OrderPartiallyFilled, OrderRejected, OrderCancelled},
}

// Transition moves the order to a new state, rejecting invalid edges.
func (o *Order) Transition(to OrderState) error {
	for _, allowed := range validOrderTransitions[o.State] {
		if allowed == to {
			o.State = to
			return nil
		}
	}
	return fmt.Errorf("invalid order transition %s -> %s", o.State, to)
}

// Fill is the one-way event handed to the position tracker after a leg fills.
type Fill struct {
	PairID    string
	Venue     VenueID
	MarketID  string
	Side      Side
	Price     Micros
	Size      int64 // positive = bought contracts, negative = sold (unwind)
	Timestamp time.Time
}

// Cost returns the signed cash outlay of the fill.
func (f *Fill) Cost() Micros {
	return f.Price.MulSize(f.Size)
}
