package storage

import (
	"context"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/settlement"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by logging, for local paper runs.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger}
}

// StoreOpportunity logs a detected opportunity.
func (c *ConsoleStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	c.logger.Info("opportunity",
		zap.String("opportunity-id", opp.ID),
		zap.String("pair-id", opp.PairID),
		zap.String("yes-venue", string(opp.YesLeg.Venue)),
		zap.String("yes-ask", opp.YesLeg.AskPrice.String()),
		zap.String("no-venue", string(opp.NoLeg.Venue)),
		zap.String("no-ask", opp.NoLeg.AskPrice.String()),
		zap.String("combined-cost", opp.CombinedCost.String()),
		zap.String("margin", opp.Margin.String()),
		zap.Int64("size-cap", opp.SizeCap),
		zap.String("expected-profit", opp.ExpectedProfit.String()))
	return nil
}

// StoreSettlement logs a settlement record.
func (c *ConsoleStorage) StoreSettlement(ctx context.Context, rec *settlement.Record) error {
	c.logger.Info("settlement",
		zap.String("pair-id", rec.PairID),
		zap.Bool("outcome-a", rec.OutcomeA),
		zap.Bool("outcome-b", rec.OutcomeB),
		zap.Bool("agreement", rec.Agreement),
		zap.String("payout", rec.Payout.String()))
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
