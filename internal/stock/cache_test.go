package stock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *MetricsCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewMetricsCache(client, time.Minute)
}

func TestMetricsCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	schoolID := uuid.New()

	_, ok := cache.Get(ctx, schoolID)
	require.False(t, ok)

	want := Metrics{TotalItems: 12, BelowIdealCount: 4, NearExpiryCount: 2}
	cache.Set(ctx, schoolID, want)

	got, ok := cache.Get(ctx, schoolID)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestMetricsCacheBumpInvalidates(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	schoolID := uuid.New()

	cache.Set(ctx, schoolID, Metrics{TotalItems: 1})
	_, ok := cache.Get(ctx, schoolID)
	require.True(t, ok)

	cache.Bump(ctx)

	_, ok = cache.Get(ctx, schoolID)
	require.False(t, ok)
}

func TestMetricsCacheNilClient(t *testing.T) {
	var cache *MetricsCache
	ctx := context.Background()

	_, ok := cache.Get(ctx, uuid.New())
	require.False(t, ok)
	cache.Set(ctx, uuid.New(), Metrics{})
	cache.Bump(ctx)
}
