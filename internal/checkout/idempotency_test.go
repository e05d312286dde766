package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*IdempotencyCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &IdempotencyCache{R: client, TTL: ttl}, mr
}

func TestIdempotencyCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "fresh-key")
	require.False(t, ok)

	orderID := uuid.New()
	cache.Put(ctx, "fresh-key", orderID)

	got, ok := cache.Get(ctx, "fresh-key")
	require.True(t, ok)
	require.Equal(t, orderID, got)
}

func TestIdempotencyCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t, time.Second)
	ctx := context.Background()

	cache.Put(ctx, "short-key", uuid.New())
	mr.FastForward(2 * time.Second)

	_, ok := cache.Get(ctx, "short-key")
	require.False(t, ok)
}

func TestIdempotencyCacheNilClientIsNoop(t *testing.T) {
	var cache *IdempotencyCache
	ctx := context.Background()

	cache.Put(ctx, "key", uuid.New())
	_, ok := cache.Get(ctx, "key")
	require.False(t, ok)
}
