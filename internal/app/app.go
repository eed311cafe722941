// Package app wires the engine together: venue clients feed the snapshot
// store, the matcher maintains pairs, the detector emits opportunities,
// the executor trades them, and the reconciler settles what resolves.
package app

import (
	"context"
	"sync"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/execution"
	"github.com/crossvenue/prediction-arb/internal/matcher"
	"github.com/crossvenue/prediction-arb/internal/position"
	"github.com/crossvenue/prediction-arb/internal/riskbreaker"
	"github.com/crossvenue/prediction-arb/internal/settlement"
	"github.com/crossvenue/prediction-arb/internal/snapshot"
	"github.com/crossvenue/prediction-arb/internal/storage"
	"github.com/crossvenue/prediction-arb/pkg/cache"
	"github.com/crossvenue/prediction-arb/pkg/config"
	"github.com/crossvenue/prediction-arb/pkg/healthprobe"
	"github.com/crossvenue/prediction-arb/pkg/httpserver"
	"github.com/crossvenue/prediction-arb/pkg/wsfeed"
	"go.uber.org/zap"
)

// App orchestrates the engine's components.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	store        *snapshot.Store
	pollerA      *snapshot.Poller
	pollerB      *snapshot.Poller
	quoteFeed    *wsfeed.Feed
	matchService *matcher.Service
	pairs        *matcher.PairStore
	detector     *arbitrage.Detector
	executor     *execution.Executor
	tracker      *position.Tracker
	breaker      *riskbreaker.Breaker
	reconciler   *settlement.Reconciler
	storage      storage.Storage
	resCache     cache.Cache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}
