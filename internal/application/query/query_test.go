package query

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/badge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/persistence/memory"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

var queryBase = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func quietLog() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func seedDays(t *testing.T, store *memory.Store, userID string, days, perDay int) {
	t.Helper()
	for d := 0; d < days; d++ {
		for i, p := range prayer.AllTypes()[:perDay] {
			scheduled := queryBase.AddDate(0, 0, d).Add(time.Duration(5+3*i) * time.Hour)
			at := scheduled.Add(10 * time.Minute)
			err := store.InsertEvent(context.Background(), &prayer.CompletionEvent{
				ID:          fmt.Sprintf("%s-d%d-%s", userID, d, p),
				UserID:      userID,
				Prayer:      p,
				ScheduledAt: scheduled,
				Completed:   true,
				CompletedAt: &at,
			})
			require.NoError(t, err)
		}
	}
}

// mapCache is a ConsistencyCache for tests.
type mapCache struct {
	mu   sync.Mutex
	data map[string]*prayer.ConsistencyStats
	sets int
	gets int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]*prayer.ConsistencyStats)}
}

func (c *mapCache) Get(ctx context.Context, userID string) (*prayer.ConsistencyStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	stats, ok := c.data[userID]
	return stats, ok, nil
}

func (c *mapCache) Set(ctx context.Context, userID string, stats *prayer.ConsistencyStats, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[userID] = stats
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, userID)
	return nil
}

func TestGetConsistencyHandler_ComputesAndCaches(t *testing.T) {
	store := memory.NewStore()
	cache := newMapCache()
	handler := NewGetConsistencyHandler(
		store, prayer.NewStreakCalculator(quietLog()), cache, time.Minute, time.UTC, quietLog())
	ctx := context.Background()

	seedDays(t, store, "u1", 3, 5)

	stats, err := handler.Handle(ctx, GetConsistencyQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.BestStreak)
	assert.Equal(t, 15, stats.TotalCompleted)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from the cache.
	again, err := handler.Handle(ctx, GetConsistencyQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, stats.CurrentStreak, again.CurrentStreak)
	assert.Equal(t, 1, cache.sets)

	// Fresh bypasses and repopulates.
	_, err = handler.Handle(ctx, GetConsistencyQuery{UserID: "u1", Fresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.sets)
}

func TestGetConsistencyHandler_NoCache(t *testing.T) {
	store := memory.NewStore()
	handler := NewGetConsistencyHandler(
		store, prayer.NewStreakCalculator(quietLog()), nil, 0, time.UTC, quietLog())

	stats, err := handler.Handle(context.Background(), GetConsistencyQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Zero(t, stats.CurrentStreak)
	assert.Zero(t, stats.BestStreak)
}

func TestGetProfileHandler(t *testing.T) {
	store := memory.NewStore()
	handler := NewGetProfileHandler(store)
	ctx := context.Background()

	profile, err := handler.Handle(ctx, GetProfileQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, profile.Level)
	assert.Equal(t, "New Believer", profile.Rank)
	assert.Zero(t, profile.TotalXP)

	_, err = store.AppendTransaction(ctx, &progression.XPTransaction{
		ID: "tx1", UserID: "u1", Amount: 100,
		Source: progression.SourceChallenge, Timestamp: queryBase,
	})
	require.NoError(t, err)

	profile, err = handler.Handle(ctx, GetProfileQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Level)
	assert.Equal(t, int64(100), profile.TotalXP)
}

func TestGetChallengesHandler_OverdueReadAsExpired(t *testing.T) {
	store := memory.NewStore()
	handler := NewGetChallengesHandler(store, time.UTC)
	ctx := context.Background()

	deadline := queryBase.Add(24*time.Hour - time.Nanosecond)
	_, err := store.UpsertInstancesIfAbsent(ctx, "u1", challenge.PeriodDaily, "2026-03-01",
		[]*challenge.UserChallenge{{
			ID:         "ch1",
			UserID:     "u1",
			TemplateID: "daily_all_five",
			Period:     challenge.PeriodDaily,
			PeriodKey:  "2026-03-01",
			Target:     5,
			XPReward:   50,
			State:      challenge.StateActive,
			ExpiresAt:  deadline,
		}})
	require.NoError(t, err)

	// Before the deadline the instance reads as ACTIVE.
	views, err := handler.Handle(ctx, GetChallengesQuery{
		UserID: "u1", Period: challenge.PeriodDaily, Now: queryBase.Add(12 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, challenge.StateActive, views[0].State)

	// Past the deadline it reads as EXPIRED even though the sweep has
	// not run yet.
	views, err = handler.Handle(ctx, GetChallengesQuery{
		UserID: "u1", Period: challenge.PeriodDaily,
		PeriodKey: "2026-03-01", Now: queryBase.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, challenge.StateExpired, views[0].State)

	// The read did not persist the transition; that stays the sweep's job.
	stored, err := store.GetInstance(ctx, "ch1")
	require.NoError(t, err)
	assert.Equal(t, challenge.StateActive, stored.State)
}

func TestGetBadgesHandler(t *testing.T) {
	store := memory.NewStore()
	catalog, err := badge.NewCatalog(badge.DefaultDefinitions())
	require.NoError(t, err)
	handler := NewGetBadgesHandler(
		catalog, store, store, prayer.NewStreakCalculator(quietLog()), time.UTC)
	ctx := context.Background()

	seedDays(t, store, "u1", 1, 2)

	views, err := handler.Handle(ctx, GetBadgesQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, views, catalog.Len())

	byID := make(map[string]BadgeView)
	for _, v := range views {
		byID[v.Definition.ID] = v
	}

	first := byID["first_steps"]
	assert.Equal(t, 1, first.Progress.Current)
	assert.False(t, first.Progress.Earned)

	fifty := byID["faithful_fifty"]
	assert.Equal(t, 2, fifty.Progress.Current)
	assert.Equal(t, 50, fifty.Progress.Target)
}
