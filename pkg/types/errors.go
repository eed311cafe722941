package types

import (
	"errors"
	"fmt"
)

// TransientVenueError wraps a network or timeout failure talking to a venue.
// Callers retry these with bounded backoff; they never halt the pipeline.
type TransientVenueError struct {
	Venue VenueID
	Op    string
	Err   error
}

func (e *TransientVenueError) Error() string {
	return fmt.Sprintf("%s: transient %s failure: %v", e.Venue, e.Op, e.Err)
}

func (e *TransientVenueError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a transient venue failure.
func IsTransient(err error) bool {
	var te *TransientVenueError
	return errors.As(err, &te)
}

// RejectedOrderError is a hard leg failure: the venue refused the order or
// the fill breached the slippage tolerance. Never retried; triggers the
// executor's unwind path.
type RejectedOrderError struct {
	Venue   VenueID
	OrderID string
	Reason  string
}

func (e *RejectedOrderError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("%s: order %s rejected: %s", e.Venue, e.OrderID, e.Reason)
	}
	return fmt.Sprintf("%s: order rejected: %s", e.Venue, e.Reason)
}

// StaleDataError aborts an execution before capital is at risk: the quotes
// backing an opportunity are older than the configured staleness timeout.
type StaleDataError struct {
	MarketID string
	Age      string
}

func (e *StaleDataError) Error() string {
	return fmt.Sprintf("stale quote for market %s (age %s)", e.MarketID, e.Age)
}

// SettlementMismatchError records that the two venues resolved a matched
// pair to different outcomes. Surfaced, never auto-resolved.
type SettlementMismatchError struct {
	PairID   string
	OutcomeA bool
	OutcomeB bool
}

func (e *SettlementMismatchError) Error() string {
	return fmt.Sprintf("settlement mismatch for pair %s: venue A resolved %t, venue B resolved %t",
		e.PairID, e.OutcomeA, e.OutcomeB)
}

// ConfigurationError is fatal at startup; invalid thresholds never become a
// runtime path.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}
