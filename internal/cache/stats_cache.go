package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// statsTTL keeps dashboard aggregates fresh enough without hammering the DB
// on every admin page load. License pool availability is deliberately never
// cached here: the authoritative availability check always runs under lock
// inside the reservation transaction.
const statsTTL = 60 * time.Second

// UsageEntry is one per-software order count for the dashboard usage chart.
type UsageEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StatsCache caches order-usage aggregates in Redis.
type StatsCache struct {
	redis *RedisClient
}

// NewStatsCache creates a new StatsCache.
func NewStatsCache(redis *RedisClient) *StatsCache {
	return &StatsCache{redis: redis}
}

func (c *StatsCache) usageKey(startDate, endDate string) string {
	return fmt.Sprintf("stats:usage:%s:%s", startDate, endDate)
}

// GetUsage returns cached usage entries for the date range, or (nil, nil) on
// a cache miss.
func (c *StatsCache) GetUsage(ctx context.Context, startDate, endDate string) ([]UsageEntry, error) {
	raw, err := c.redis.Get(ctx, c.usageKey(startDate, endDate))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var entries []UsageEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal usage stats: %w", err)
	}
	return entries, nil
}

// SetUsage stores usage entries for the date range.
func (c *StatsCache) SetUsage(ctx context.Context, startDate, endDate string, entries []UsageEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal usage stats: %w", err)
	}
	return c.redis.Set(ctx, c.usageKey(startDate, endDate), string(raw), statsTTL)
}
