package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c.(*RistrettoCache)
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t)

	require.True(t, c.Set("key-1", "value-1", time.Minute))
	c.Wait()

	got, found := c.Get("key-1")
	require.True(t, found)
	assert.Equal(t, "value-1", got)
}

func TestCacheMiss(t *testing.T) {
	c := newTestCache(t)

	_, found := c.Get("never-set")
	assert.False(t, found)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t)

	require.True(t, c.Set("key-1", "value-1", 50*time.Millisecond))
	c.Wait()

	_, found := c.Get("key-1")
	require.True(t, found)

	time.Sleep(100 * time.Millisecond)
	_, found = c.Get("key-1")
	assert.False(t, found)
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache(t)

	require.True(t, c.Set("key-1", "value-1", time.Minute))
	c.Wait()

	c.Delete("key-1")
	_, found := c.Get("key-1")
	assert.False(t, found)
}

func TestCacheClear(t *testing.T) {
	c := newTestCache(t)

	require.True(t, c.Set("key-1", 1, time.Minute))
	require.True(t, c.Set("key-2", 2, time.Minute))
	c.Wait()

	c.Clear()

	_, found := c.Get("key-1")
	assert.False(t, found)
	_, found = c.Get("key-2")
	assert.False(t, found)
}

func TestCacheOverwrite(t *testing.T) {
	c := newTestCache(t)

	require.True(t, c.Set("key-1", "old", time.Minute))
	c.Wait()
	require.True(t, c.Set("key-1", "new", time.Minute))
	c.Wait()

	got, found := c.Get("key-1")
	require.True(t, found)
	assert.Equal(t, "new", got)
}
