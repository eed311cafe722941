package venue

import (
	"context"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// RetryConfig bounds retries of transient venue failures.
type RetryConfig struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// WithRetry runs fn, retrying transient venue errors with exponential
// backoff. Non-transient errors return immediately; a hard order rejection
// must never be resubmitted.
func WithRetry(ctx context.Context, logger *zap.Logger, cfg RetryConfig, op string, fn func(context.Context) error) error {
	backoff := cfg.Backoff

	var err error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		if !types.IsTransient(err) {
			return err
		}

		if attempt == cfg.Attempts {
			break
		}

		logger.Warn("transient-venue-error-retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * 2)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return err
}
