package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/settlement"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage opens and pings a PostgreSQL connection.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{db: db, logger: cfg.Logger}, nil
}

// NewPostgresStorageWithDB wraps an existing connection, used by tests.
func NewPostgresStorageWithDB(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// StoreOpportunity inserts an opportunity row. Money columns hold
// micro-dollar integers.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	query := `
		INSERT INTO opportunities (
			id, pair_id, detected_at, state,
			yes_venue, yes_market_id, yes_ask_micros, yes_ask_size,
			no_venue, no_market_id, no_ask_micros, no_ask_size,
			combined_cost_micros, fees_micros, margin_micros,
			size_cap, expected_profit_micros
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		opp.ID,
		opp.PairID,
		opp.DetectedAt,
		string(opp.State),
		string(opp.YesLeg.Venue),
		opp.YesLeg.MarketID,
		int64(opp.YesLeg.AskPrice),
		opp.YesLeg.AskSize,
		string(opp.NoLeg.Venue),
		opp.NoLeg.MarketID,
		int64(opp.NoLeg.AskPrice),
		opp.NoLeg.AskSize,
		int64(opp.CombinedCost),
		int64(opp.Fees),
		int64(opp.Margin),
		opp.SizeCap,
		int64(opp.ExpectedProfit),
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("pair-id", opp.PairID))

	return nil
}

// StoreSettlement inserts a settlement record.
func (p *PostgresStorage) StoreSettlement(ctx context.Context, rec *settlement.Record) error {
	query := `
		INSERT INTO settlements (
			pair_id, event_a_id, event_b_id,
			outcome_a, outcome_b, agreement, payout_micros, settled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.PairID,
		rec.EventAID,
		rec.EventBID,
		rec.OutcomeA,
		rec.OutcomeB,
		rec.Agreement,
		int64(rec.Payout),
		rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}

	p.logger.Debug("settlement-stored",
		zap.String("pair-id", rec.PairID),
		zap.Bool("agreement", rec.Agreement))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
