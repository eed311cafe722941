package wsfeed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

type reconnectConfig struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitter       float64 // 0.2 = up to 20% extra delay
}

// reconnector retries a connect function with jittered exponential backoff.
type reconnector struct {
	cfg    reconnectConfig
	logger *zap.Logger

	mu      sync.Mutex
	backoff time.Duration
}

func newReconnector(cfg reconnectConfig, logger *zap.Logger) *reconnector {
	return &reconnector{cfg: cfg, logger: logger, backoff: cfg.initialDelay}
}

// run retries connect until it succeeds or ctx is cancelled.
func (r *reconnector) run(ctx context.Context, connect func(context.Context) error) error {
	for {
		backoff := r.next()

		r.logger.Info("reconnect-attempt", zap.Duration("backoff", backoff))
		ReconnectAttemptsTotal.Inc()

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := connect(ctx); err == nil {
			r.reset()
			return nil
		} else {
			r.logger.Warn("reconnect-failed", zap.Error(err))
			r.grow()
		}
	}
}

func (r *reconnector) reset() {
	r.mu.Lock()
	r.backoff = r.cfg.initialDelay
	r.mu.Unlock()
}

func (r *reconnector) next() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	jitter := rand.Float64() * r.cfg.jitter
	return time.Duration(float64(r.backoff) * (1.0 + jitter))
}

func (r *reconnector) grow() {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := time.Duration(float64(r.backoff) * r.cfg.multiplier)
	if next > r.cfg.maxDelay {
		next = r.cfg.maxDelay
	}
	r.backoff = next
}
