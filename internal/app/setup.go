package app

import (
	"context"
	"fmt"

	"github.com/crossvenue/prediction-arb/internal/arbitrage"
	"github.com/crossvenue/prediction-arb/internal/execution"
	"github.com/crossvenue/prediction-arb/internal/matcher"
	"github.com/crossvenue/prediction-arb/internal/position"
	"github.com/crossvenue/prediction-arb/internal/riskbreaker"
	"github.com/crossvenue/prediction-arb/internal/settlement"
	"github.com/crossvenue/prediction-arb/internal/snapshot"
	"github.com/crossvenue/prediction-arb/internal/storage"
	"github.com/crossvenue/prediction-arb/internal/venue"
	"github.com/crossvenue/prediction-arb/internal/venue/kalshi"
	"github.com/crossvenue/prediction-arb/internal/venue/polymkt"
	"github.com/crossvenue/prediction-arb/pkg/cache"
	"github.com/crossvenue/prediction-arb/pkg/config"
	"github.com/crossvenue/prediction-arb/pkg/healthprobe"
	"github.com/crossvenue/prediction-arb/pkg/httpserver"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"github.com/crossvenue/prediction-arb/pkg/wsfeed"
	"go.uber.org/zap"
)

// New builds the full component graph from configuration. Nothing starts
// running until Run.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthprobe.New(),
		ctx:           ctx,
		cancel:        cancel,
	}

	retry := venue.RetryConfig{
		Attempts:   cfg.RetryAttempts,
		Backoff:    cfg.RetryBackoff,
		MaxBackoff: cfg.RetryMaxBackoff,
	}

	// Venue data clients and snapshot pollers.
	polymktClient := polymkt.NewClient(&polymkt.ClientConfig{
		BaseURL: cfg.PolymktAPIURL,
		Logger:  logger,
	})
	kalshiClient := kalshi.New(&kalshi.Config{
		BaseURL: cfg.KalshiAPIURL,
		APIKey:  cfg.KalshiAPIKey,
		Logger:  logger,
	})

	a.store = snapshot.New(logger)
	pollerCfg := snapshot.PollerConfig{
		EventInterval: cfg.EventPollInterval,
		QuoteInterval: cfg.QuotePollInterval,
		EventLimit:    cfg.EventLimit,
		Retry:         retry,
		Logger:        logger,
	}
	a.pollerA = snapshot.NewPoller(polymktClient, a.store, pollerCfg)
	a.pollerB = snapshot.NewPoller(kalshiClient, a.store, pollerCfg)

	if cfg.WSFeedEnabled {
		a.quoteFeed = wsfeed.New(wsfeed.Config{
			URL:                   cfg.PolymktWSURL,
			Venue:                 types.VenuePolymkt,
			DialTimeout:           cfg.WSDialTimeout,
			PongTimeout:           cfg.WSPongTimeout,
			PingInterval:          cfg.WSPingInterval,
			ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
			ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
			ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
			Logger:                logger,
		}, a.store)
	}

	// Matching.
	a.pairs = matcher.NewPairStore()
	m := matcher.New(matcher.Config{
		Threshold:       cfg.MatchThreshold,
		ExpiryTolerance: cfg.ExpiryTolerance,
		Logger:          logger,
	})
	a.matchService = matcher.NewService(m, a.pairs, a.store, matcher.ServiceConfig{
		Interval:        cfg.MatchInterval,
		CategoryAllow:   cfg.CategoryAllowList,
		MaxTimeToExpiry: cfg.MaxHoursToExpiry,
		MinTimeToExpiry: cfg.MinHoursToExpiry,
		Logger:          logger,
	})

	// Storage backend.
	if cfg.StorageMode == "postgres" {
		pg, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("postgres storage: %w", err)
		}
		a.storage = pg
	} else {
		a.storage = storage.NewConsoleStorage(logger)
	}

	// Detection.
	a.detector = arbitrage.New(arbitrage.Config{
		MinMargin:       cfg.MinMargin,
		EstimatedFees:   cfg.EstimatedFees,
		MaxPositionSize: cfg.MaxPositionSize,
		MinQuoteSize:    cfg.MinQuoteSize,
		StaleQuoteAfter: cfg.StaleQuoteAfter,
		Logger:          logger,
	}, a.pairs, a.store, a.storage)

	// Positions and risk. Every accepted quote re-marks open positions so
	// /api/positions and exposure checks see current unrealized PnL.
	a.tracker = position.NewTracker(logger)
	a.store.OnQuote(a.tracker.MarkToMarket)

	var gate execution.Gate
	if cfg.BreakerEnabled {
		breaker, err := riskbreaker.New(&riskbreaker.Config{
			CheckInterval:   cfg.QuotePollInterval,
			MaxExposure:     cfg.BreakerMaxExposure,
			HysteresisRatio: cfg.BreakerHysteresisRatio,
			Source:          a.tracker,
			Logger:          logger,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("risk breaker: %w", err)
		}
		a.breaker = breaker
		gate = breaker
	}

	// Execution.
	orderClients := make(map[types.VenueID]venue.OrderClient)
	if cfg.ExecutionMode == execution.ModeLive {
		polymktOrders, err := polymkt.NewOrderClient(&polymkt.OrderClientConfig{
			BaseURL:       cfg.PolymktCLOBURL,
			APIKey:        cfg.PolymktAPIKey,
			Secret:        cfg.PolymktSecret,
			Passphrase:    cfg.PolymktPassphrase,
			PrivateKey:    cfg.PolymktPrivateKey,
			ProxyAddress:  cfg.PolymktProxyAddr,
			SignatureType: cfg.PolymktSigType,
			ChainID:       cfg.PolymktChainID,
			Logger:        logger,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("polymkt order client: %w", err)
		}
		orderClients[types.VenuePolymkt] = polymktOrders
		orderClients[types.VenueKalshi] = kalshiClient
	}

	a.executor = execution.New(&execution.Config{
		Mode:               cfg.ExecutionMode,
		SlippageTolerance:  cfg.SlippageTolerance,
		Retry:              retry,
		OpportunityChannel: a.detector.OpportunityChan(),
		Clients:            orderClients,
		Detector:           a.detector,
		Tracker:            a.tracker,
		Gate:               gate,
		Logger:             logger,
	})

	// Settlement, with resolution lookups cached.
	resCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("resolution cache: %w", err)
	}
	a.resCache = resCache

	a.reconciler = settlement.New(&settlement.Config{
		PollInterval: cfg.SettlementPollInterval,
		ClientA:      venue.NewCachedSettlementClient(polymktClient, resCache, types.VenuePolymkt, cfg.ResolutionCacheTTL, cfg.ResolvedCacheTTL),
		ClientB:      venue.NewCachedSettlementClient(kalshiClient, resCache, types.VenueKalshi, cfg.ResolutionCacheTTL, cfg.ResolvedCacheTTL),
		Pairs:        a.pairs,
		Tracker:      a.tracker,
		Storage:      a.storage,
		Logger:       logger,
	})

	// Ops surface.
	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: a.healthChecker,
		Pairs:         a.pairs,
		Tracker:       a.tracker,
		Breaker:       a.breaker,
	})

	return a, nil
}
