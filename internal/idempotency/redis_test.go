package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"storefront-deposits-go/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, models.CacheConfig{Addr: "127.0.0.1:1", TTL: time.Minute})
	assert.Error(t, err)
}

// Runs only when a cache server is available, e.g. CACHE_ADDR=localhost:6379.
func TestRedisCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("CACHE_ADDR")
	if addr == "" {
		t.Skip("CACHE_ADDR not set")
	}

	ctx := context.Background()
	cache, err := NewRedisCache(ctx, models.CacheConfig{Addr: addr, Password: os.Getenv("CACHE_PASSWORD"), TTL: time.Minute})
	require.NoError(t, err)
	defer cache.Close()

	key := "test-" + uuid.New().String()
	seen, err := cache.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, cache.Remember(ctx, key))
	seen, err = cache.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)
}
