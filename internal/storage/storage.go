// Package storage persists detected opportunities and settlement records.
// Two backends: Postgres for real deployments, console for local runs.
package storage

import (
	"context"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/settlement"
)

// Storage records opportunities and settlements.
type Storage interface {
	// StoreOpportunity records a detected arbitrage opportunity.
	StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error

	// StoreSettlement records the reconciliation outcome for a pair.
	StoreSettlement(ctx context.Context, rec *settlement.Record) error

	// Close releases the backend connection.
	Close() error
}
