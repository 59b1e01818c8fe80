package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "stock:metrics:version"

// MetricsCache wraps Redis based caching of per-school metrics with a global
// version counter. Bumping the version after any stock mutation invalidates
// every cached entry without scanning keys.
type MetricsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMetricsCache instantiates the cache helper. A nil client disables
// caching entirely.
func NewMetricsCache(client *redis.Client, ttl time.Duration) *MetricsCache {
	return &MetricsCache{client: client, ttl: ttl}
}

func (c *MetricsCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *MetricsCache) key(ver int64, schoolID uuid.UUID) string {
	return fmt.Sprintf("stock:metrics:v%d:%s", ver, schoolID)
}

// Get returns the cached metrics for the school, reporting a miss when the
// cache is disabled, cold, or stale.
func (c *MetricsCache) Get(ctx context.Context, schoolID uuid.UUID) (Metrics, bool) {
	if c == nil || c.client == nil {
		return Metrics{}, false
	}
	ver, err := c.version(ctx)
	if err != nil {
		return Metrics{}, false
	}
	payload, err := c.client.Get(ctx, c.key(ver, schoolID)).Bytes()
	if err != nil {
		return Metrics{}, false
	}
	var m Metrics
	if err := json.Unmarshal(payload, &m); err != nil {
		return Metrics{}, false
	}
	return m, true
}

// Set stores the metrics for the school under the current version.
func (c *MetricsCache) Set(ctx context.Context, schoolID uuid.UUID, m Metrics) {
	if c == nil || c.client == nil {
		return
	}
	ver, err := c.version(ctx)
	if err != nil {
		return
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(ver, schoolID), payload, c.ttl).Err()
}

// Bump invalidates all cached metrics. Cache failures never fail the
// mutation that triggered the bump.
func (c *MetricsCache) Bump(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Incr(ctx, cacheVersionKey).Err()
}
