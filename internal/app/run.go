package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crossvenue/prediction-arb/internal/snapshot"
	"go.uber.org/zap"
)

// Run starts every component and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("engine-starting",
		zap.String("mode", a.cfg.ExecutionMode),
		zap.String("min-margin", a.cfg.MinMargin.String()),
		zap.Float64("match-threshold", a.cfg.MatchThreshold))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)
	a.logger.Info("engine-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	a.wg.Add(2)
	go a.runPoller(a.pollerA)
	go a.runPoller(a.pollerB)

	if a.quoteFeed != nil {
		if err := a.quoteFeed.Start(); err != nil {
			// The REST pollers still cover quotes; a dead feed degrades
			// latency, not correctness.
			a.logger.Warn("quote-feed-start-failed", zap.Error(err))
			a.quoteFeed = nil
		}
	}

	a.wg.Add(1)
	go a.runMatchService()

	if a.quoteFeed != nil {
		a.wg.Add(1)
		go a.runFeedSubscriber()
	}

	if err := a.detector.Start(a.ctx); err != nil {
		return fmt.Errorf("start detector: %w", err)
	}

	if a.breaker != nil {
		if err := a.breaker.Start(a.ctx); err != nil {
			return fmt.Errorf("start risk breaker: %w", err)
		}
	}

	if err := a.executor.Start(a.ctx); err != nil {
		return fmt.Errorf("start executor: %w", err)
	}

	if err := a.reconciler.Start(a.ctx); err != nil {
		return fmt.Errorf("start reconciler: %w", err)
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runPoller(p *snapshot.Poller) {
	defer a.wg.Done()
	if err := p.Run(a.ctx); err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("poller-error", zap.Error(err))
	}
}

// runFeedSubscriber keeps the quote feed subscribed to the decentralized
// venue's side of every active pair. Subscribe dedups, so re-offering the
// same markets every cycle is harmless.
func (a *App) runFeedSubscriber() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.MatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			pairs := a.pairs.ActivePairs()
			ids := make([]string, 0, len(pairs))
			for _, p := range pairs {
				ids = append(ids, p.MarketAID)
			}
			if err := a.quoteFeed.Subscribe(ids); err != nil {
				a.logger.Warn("quote-feed-subscribe-failed", zap.Error(err))
			}
		}
	}
}

func (a *App) runMatchService() {
	defer a.wg.Done()
	if err := a.matchService.Run(a.ctx); err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("match-service-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
