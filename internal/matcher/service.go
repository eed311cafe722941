package matcher

import (
	"context"
	"strings"
	"time"

	"github.com/crossvenue/prediction-arb/internal/snapshot"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// ServiceConfig holds the matching service configuration.
type ServiceConfig struct {
	Interval        time.Duration
	CategoryAllow   []string // empty = all categories
	MaxTimeToExpiry time.Duration
	MinTimeToExpiry time.Duration
	Logger          *zap.Logger
}

// Service re-runs matching on a fixed cadence, keeping the pair store in
// sync with the snapshot store.
type Service struct {
	matcher *Matcher
	pairs   *PairStore
	store   *snapshot.Store
	cfg     ServiceConfig
	logger  *zap.Logger
}

// NewService creates the matching service.
func NewService(m *Matcher, pairs *PairStore, store *snapshot.Store, cfg ServiceConfig) *Service {
	if cfg.MinTimeToExpiry == 0 {
		cfg.MinTimeToExpiry = 5 * time.Minute
	}
	return &Service{
		matcher: m,
		pairs:   pairs,
		store:   store,
		cfg:     cfg,
		logger:  cfg.Logger,
	}
}

// Run blocks until ctx is cancelled, re-matching on every tick.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("matcher-service-starting",
		zap.Duration("interval", s.cfg.Interval),
		zap.Strings("categories", s.cfg.CategoryAllow))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// First run immediately; waiting a full interval on startup just delays
	// the pipeline for no reason.
	s.RunOnce(time.Now())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("matcher-service-stopping")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(time.Now())
		}
	}
}

// RunOnce executes a single match cycle against the current snapshots.
func (s *Service) RunOnce(now time.Time) {
	start := time.Now()

	eventsA := s.filterEvents(s.store.Events(types.VenuePolymkt), now)
	eventsB := s.filterEvents(s.store.Events(types.VenueKalshi), now)

	candidates := s.matcher.Match(eventsA, eventsB)
	created := s.pairs.Reconcile(candidates, now)

	retired := s.pairs.RetireForInactiveEvents(func(p Pair) bool {
		evA, okA := s.store.Event(types.VenuePolymkt, p.EventAID)
		evB, okB := s.store.Event(types.VenueKalshi, p.EventBID)
		// An event missing from the snapshot is treated as still active:
		// a stale venue snapshot must not retire live pairs.
		if okA && !evA.Active() {
			return false
		}
		if okB && !evB.Active() {
			return false
		}
		return true
	}, now)

	MatchRunDurationSeconds.Observe(time.Since(start).Seconds())
	ActivePairs.Set(float64(len(s.pairs.ActivePairs())))
	PairsCreatedTotal.Add(float64(len(created)))
	PairsRetiredTotal.Add(float64(len(retired)))

	for _, p := range created {
		s.logger.Info("pair-created",
			zap.String("pair-id", p.ID),
			zap.String("event-a", p.EventAID),
			zap.String("event-b", p.EventBID),
			zap.Float64("confidence", p.Confidence),
			zap.Duration("expiry-delta", p.ExpiryDelta))
	}
	for _, id := range retired {
		s.logger.Info("pair-retired", zap.String("pair-id", id))
	}
}

// filterEvents applies the pre-match filters: open status, binary market,
// category allow-list and the resolution time window.
func (s *Service) filterEvents(events []types.Event, now time.Time) []types.Event {
	out := make([]types.Event, 0, len(events))
	for _, ev := range events {
		if !ev.Active() || ev.BinaryMarket() == nil {
			continue
		}

		until := ev.ExpiresAt.Sub(now)
		if until < s.cfg.MinTimeToExpiry {
			continue
		}
		if s.cfg.MaxTimeToExpiry > 0 && until > s.cfg.MaxTimeToExpiry {
			continue
		}

		if !s.categoryAllowed(ev.Category) {
			continue
		}

		out = append(out, ev)
	}
	return out
}

func (s *Service) categoryAllowed(category string) bool {
	if len(s.cfg.CategoryAllow) == 0 {
		return true
	}
	for _, allowed := range s.cfg.CategoryAllow {
		if strings.EqualFold(category, allowed) {
			return true
		}
	}
	return false
}
