package jobs

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/query"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/persistence/memory"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

// fakeLock records acquisitions and can simulate a lock held elsewhere.
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	acquired int
	released int
}

func (l *fakeLock) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.acquired++
	return true, nil
}

func (l *fakeLock) ReleaseLock(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released++
	return nil
}

func seedChallenge(t *testing.T, store *memory.Store, userID string, expiresAt time.Time) *challenge.UserChallenge {
	t.Helper()
	instance := &challenge.UserChallenge{
		ID:         userID + "-ch1",
		UserID:     userID,
		TemplateID: "daily_all_five",
		Period:     challenge.PeriodDaily,
		PeriodKey:  "2025-03-10",
		Progress:   0,
		Target:     5,
		XPReward:   50,
		State:      challenge.StateActive,
		ExpiresAt:  expiresAt,
	}
	_, err := store.UpsertInstancesIfAbsent(context.Background(), userID, instance.Period, instance.PeriodKey,
		[]*challenge.UserChallenge{instance})
	require.NoError(t, err)
	return instance
}

func TestExpireChallengesJob_SweepsOverdue(t *testing.T) {
	store := memory.NewStore()
	past := time.Now().UTC().Add(-time.Hour)
	seedChallenge(t, store, "user1", past)

	job := NewExpireChallengesJob(store, nil, testLogger())
	require.NoError(t, job.Run(context.Background()))

	got, err := store.GetInstance(context.Background(), "user1-ch1")
	require.NoError(t, err)
	assert.Equal(t, challenge.StateExpired, got.State)
}

func TestExpireChallengesJob_LeavesCurrentAlone(t *testing.T) {
	store := memory.NewStore()
	future := time.Now().UTC().Add(time.Hour)
	seedChallenge(t, store, "user1", future)

	job := NewExpireChallengesJob(store, nil, testLogger())
	require.NoError(t, job.Run(context.Background()))

	got, err := store.GetInstance(context.Background(), "user1-ch1")
	require.NoError(t, err)
	assert.Equal(t, challenge.StateActive, got.State)
}

func TestExpireChallengesJob_UsesLock(t *testing.T) {
	store := memory.NewStore()
	seedChallenge(t, store, "user1", time.Now().UTC().Add(-time.Hour))

	lock := &fakeLock{}
	job := NewExpireChallengesJob(store, lock, testLogger())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)
}

func TestExpireChallengesJob_SkipsWhenLockHeld(t *testing.T) {
	store := memory.NewStore()
	seedChallenge(t, store, "user1", time.Now().UTC().Add(-time.Hour))

	lock := &fakeLock{held: true}
	job := NewExpireChallengesJob(store, lock, testLogger())
	require.NoError(t, job.Run(context.Background()))

	// The sweep was skipped entirely, nothing expired.
	got, err := store.GetInstance(context.Background(), "user1-ch1")
	require.NoError(t, err)
	assert.Equal(t, challenge.StateActive, got.State)
	assert.Equal(t, 0, lock.released)
}

// recordingCache observes which users got their stats re-cached.
type recordingCache struct {
	mu   sync.Mutex
	sets []string
}

func (c *recordingCache) Get(ctx context.Context, userID string) (*prayer.ConsistencyStats, bool, error) {
	return nil, false, nil
}

func (c *recordingCache) Set(ctx context.Context, userID string, stats *prayer.ConsistencyStats, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = append(c.sets, userID)
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, userID string) error { return nil }

func TestRefreshStatsJob_RefreshesActiveUsers(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	for _, userID := range []string{"user1", "user2"} {
		completed := now
		err := store.InsertEvent(context.Background(), &prayer.CompletionEvent{
			ID:          userID + "-fajr",
			UserID:      userID,
			Prayer:      prayer.Fajr,
			ScheduledAt: now,
			CompletedAt: &completed,
			Completed:   true,
		})
		require.NoError(t, err)
	}

	cache := &recordingCache{}
	calculator := prayer.NewStreakCalculator(testLogger())
	consistency := query.NewGetConsistencyHandler(store, calculator, cache, time.Minute, time.UTC, testLogger())

	source := ActiveUserFunc(func(ctx context.Context) ([]string, error) {
		return []string{"user1", "user2"}, nil
	})

	job := NewRefreshStatsJob(source, consistency, testLogger())
	require.NoError(t, job.Run(context.Background()))

	assert.ElementsMatch(t, []string{"user1", "user2"}, cache.sets)
}

func TestRefreshStatsJob_SkipsFailingUser(t *testing.T) {
	store := memory.NewStore()
	cache := &recordingCache{}
	calculator := prayer.NewStreakCalculator(testLogger())
	consistency := query.NewGetConsistencyHandler(store, calculator, cache, time.Minute, time.UTC, testLogger())

	// The empty user ID fails validation; the pass must still reach user1.
	source := ActiveUserFunc(func(ctx context.Context) ([]string, error) {
		return []string{"", "user1"}, nil
	})

	job := NewRefreshStatsJob(source, consistency, testLogger())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"user1"}, cache.sets)
}
