package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown stops components in dependency order and waits for goroutines.
func (a *App) Shutdown() error {
	a.logger.Info("engine-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if a.quoteFeed != nil {
		a.quoteFeed.Close()
	}

	// The executor drains before the detector closes its channel; closing
	// in the other order would drop in-flight opportunities.
	a.executor.Close()
	if err := a.detector.Close(); err != nil {
		a.logger.Error("detector-close-error", zap.Error(err))
	}

	a.reconciler.Close()

	if a.breaker != nil {
		a.breaker.Close()
	}

	if err := a.storage.Close(); err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	if a.resCache != nil {
		a.resCache.Close()
	}

	a.wg.Wait()

	a.logger.Info("engine-shutdown-complete")
	return nil
}
