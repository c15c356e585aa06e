package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache(time.Minute, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Remember(ctx, "k1"))
	seen, err := cache.Seen(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, seen)

	now = now.Add(2 * time.Minute)
	seen, err = cache.Seen(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, seen, "expired keys are not reported")

	cache.cleanup()
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_StartStop(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 10*time.Millisecond)
	cache.Start(context.Background())
	require.NoError(t, cache.Remember(context.Background(), "k1"))
	cache.Stop()
	cache.Stop()

	unstarted := NewMemoryCache(time.Minute, time.Minute)
	unstarted.Stop()
}
