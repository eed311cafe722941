package venue

import (
	"context"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/cache"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

// CachedSettlementClient wraps a SettlementClient with a TTL cache.
// Resolved outcomes are immutable, so they cache forever; unresolved
// answers cache briefly to bound polling pressure on the venue.
type CachedSettlementClient struct {
	inner         SettlementClient
	cache         cache.Cache
	keyPrefix     string // venue prefix, event ids are venue-local
	unresolvedTTL time.Duration
	resolvedTTL   time.Duration
}

// NewCachedSettlementClient wraps inner with the given cache.
func NewCachedSettlementClient(inner SettlementClient, c cache.Cache, venueID types.VenueID, unresolvedTTL, resolvedTTL time.Duration) *CachedSettlementClient {
	return &CachedSettlementClient{
		inner:         inner,
		cache:         c,
		keyPrefix:     string(venueID) + ":",
		unresolvedTTL: unresolvedTTL,
		resolvedTTL:   resolvedTTL,
	}
}

// FetchResolution returns the cached resolution or asks the venue.
func (c *CachedSettlementClient) FetchResolution(ctx context.Context, eventID string) (*types.Resolution, error) {
	if cached, ok := c.cache.Get(c.keyPrefix + eventID); ok {
		if res, ok := cached.(*types.Resolution); ok {
			return res, nil
		}
	}

	res, err := c.inner.FetchResolution(ctx, eventID)
	if err != nil {
		return nil, err
	}

	ttl := c.unresolvedTTL
	if res.Resolved {
		ttl = c.resolvedTTL
	}
	c.cache.Set(c.keyPrefix+eventID, res, ttl)

	return res, nil
}
