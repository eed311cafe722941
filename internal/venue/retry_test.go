package venue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

func retryCfg(attempts int) RetryConfig {
	return RetryConfig{Attempts: attempts, Backoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), zap.NewNop(), retryCfg(3), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &types.TransientVenueError{Venue: types.VenueKalshi, Op: "op", Err: errors.New("timeout")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), zap.NewNop(), retryCfg(3), "op", func(ctx context.Context) error {
		calls++
		return &types.TransientVenueError{Venue: types.VenueKalshi, Op: "op", Err: errors.New("timeout")}
	})

	require.Error(t, err)
	assert.True(t, types.IsTransient(err))
	assert.Equal(t, 3, calls)
}

func TestWithRetryNeverRetriesHardRejection(t *testing.T) {
	calls := 0
	rejection := &types.RejectedOrderError{Venue: types.VenueKalshi, Reason: "bad price"}
	err := WithRetry(context.Background(), zap.NewNop(), retryCfg(5), "op", func(ctx context.Context) error {
		calls++
		return rejection
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	var rejected *types.RejectedOrderError
	assert.ErrorAs(t, err, &rejected)
}

func TestWithRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, zap.NewNop(), RetryConfig{Attempts: 10, Backoff: time.Second, MaxBackoff: time.Second}, "op", func(ctx context.Context) error {
		calls++
		cancel()
		return &types.TransientVenueError{Venue: types.VenueKalshi, Op: "op", Err: errors.New("timeout")}
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
