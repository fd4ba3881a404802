package redis

import (
	"context"
	"errors"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/query"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSISTENCY STATS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// StatsCache stores derived consistency statistics per user. It is a plain
// read-through cache: a miss is reported via found=false and the caller
// recomputes from the event log.
type StatsCache struct {
	cache *Cache
}

// NewStatsCache creates a new StatsCache backed by the given cache client.
func NewStatsCache(cache *Cache) *StatsCache {
	return &StatsCache{cache: cache}
}

var _ query.ConsistencyCache = (*StatsCache)(nil)

// Get returns the cached statistics for a user, found=false on a miss.
func (s *StatsCache) Get(ctx context.Context, userID string) (*prayer.ConsistencyStats, bool, error) {
	var stats prayer.ConsistencyStats
	if err := s.cache.Get(ctx, StatsKey(userID), &stats); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &stats, true, nil
}

// Set stores the statistics for a user with the given TTL.
func (s *StatsCache) Set(ctx context.Context, userID string, stats *prayer.ConsistencyStats, ttl time.Duration) error {
	return s.cache.Set(ctx, StatsKey(userID), stats, ttl)
}

// Invalidate drops the cached statistics for a user.
func (s *StatsCache) Invalidate(ctx context.Context, userID string) error {
	return s.cache.Delete(ctx, StatsKey(userID))
}
