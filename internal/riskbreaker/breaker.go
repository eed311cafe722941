// Package riskbreaker gates new executions on unhedged exposure. The check
// is lock-free on the hot path; a background loop re-evaluates exposure and
// flips the breaker with hysteresis so it does not flap around the limit.
package riskbreaker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// ExposureSource reports the current unhedged exposure. The position
// tracker implements it.
type ExposureSource interface {
	UnhedgedExposure() types.Micros
}

// Config holds breaker configuration.
type Config struct {
	CheckInterval   time.Duration
	MaxExposure     types.Micros // trip above this
	HysteresisRatio float64      // re-enable below MaxExposure * ratio, in (0, 1]
	Source          ExposureSource
	Logger          *zap.Logger
}

// Breaker tracks exposure and exposes a lock-free Allow check.
type Breaker struct {
	enabled atomic.Bool

	cfg             *Config
	enableThreshold types.Micros

	mu           sync.RWMutex
	lastExposure types.Micros
	lastCheck    time.Time

	wg sync.WaitGroup
}

// New creates a breaker. It starts enabled.
func New(cfg *Config) (*Breaker, error) {
	if cfg.Source == nil {
		return nil, &types.ConfigurationError{Field: "source", Reason: "exposure source cannot be nil"}
	}
	if cfg.CheckInterval <= 0 {
		return nil, &types.ConfigurationError{Field: "check-interval", Reason: "must be positive"}
	}
	if cfg.MaxExposure <= 0 {
		return nil, &types.ConfigurationError{Field: "max-exposure", Reason: "must be positive"}
	}
	if cfg.HysteresisRatio <= 0 || cfg.HysteresisRatio > 1 {
		return nil, &types.ConfigurationError{Field: "hysteresis-ratio", Reason: "must be in (0, 1]"}
	}

	b := &Breaker{
		cfg:             cfg,
		enableThreshold: types.Micros(float64(cfg.MaxExposure) * cfg.HysteresisRatio),
	}
	b.enabled.Store(true)

	BreakerEnabled.Set(1)
	BreakerMaxExposureMicros.Set(float64(cfg.MaxExposure))

	return b, nil
}

// Allow reports whether new executions may proceed. Lock-free, safe on the
// hot path.
func (b *Breaker) Allow() bool {
	return b.enabled.Load()
}

// Start launches the periodic exposure check.
func (b *Breaker) Start(ctx context.Context) error {
	b.cfg.Logger.Info("risk-breaker-starting",
		zap.String("max-exposure", b.cfg.MaxExposure.String()),
		zap.Duration("check-interval", b.cfg.CheckInterval))

	b.wg.Add(1)
	go b.loop(ctx)

	return nil
}

// Close waits for the check loop to exit.
func (b *Breaker) Close() {
	b.wg.Wait()
}

func (b *Breaker) loop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.cfg.Logger.Info("risk-breaker-stopping")
			return
		case <-ticker.C:
			b.Check(time.Now())
		}
	}
}

// Check re-evaluates exposure and flips the breaker. Tripping happens at
// MaxExposure; re-enabling requires exposure to fall below the hysteresis
// threshold, not just back under the limit.
func (b *Breaker) Check(now time.Time) {
	exposure := b.cfg.Source.UnhedgedExposure()

	b.mu.Lock()
	b.lastExposure = exposure
	b.lastCheck = now
	b.mu.Unlock()

	UnhedgedExposureMicros.Set(float64(exposure))

	switch {
	case b.enabled.Load() && exposure >= b.cfg.MaxExposure:
		b.enabled.Store(false)
		BreakerEnabled.Set(0)
		BreakerTripsTotal.Inc()
		b.cfg.Logger.Warn("risk-breaker-tripped",
			zap.String("exposure", exposure.String()),
			zap.String("max-exposure", b.cfg.MaxExposure.String()))
	case !b.enabled.Load() && exposure < b.enableThreshold:
		b.enabled.Store(true)
		BreakerEnabled.Set(1)
		b.cfg.Logger.Info("risk-breaker-reset",
			zap.String("exposure", exposure.String()),
			zap.String("enable-threshold", b.enableThreshold.String()))
	}
}

// Status is a point-in-time view for the ops endpoints.
type Status struct {
	Enabled         bool         `json:"enabled"`
	LastExposure    types.Micros `json:"last_exposure_micros"`
	LastCheck       time.Time    `json:"last_check"`
	MaxExposure     types.Micros `json:"max_exposure_micros"`
	EnableThreshold types.Micros `json:"enable_threshold_micros"`
}

// Status returns the breaker's current state.
func (b *Breaker) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Status{
		Enabled:         b.enabled.Load(),
		LastExposure:    b.lastExposure,
		LastCheck:       b.lastCheck,
		MaxExposure:     b.cfg.MaxExposure,
		EnableThreshold: b.enableThreshold,
	}
}
