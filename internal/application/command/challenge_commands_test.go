package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/persistence/memory"
)

func challengeFixtures(t *testing.T, store *memory.Store) (*GenerateChallengesHandler, *CompleteChallengeHandler, *UpdateChallengeProgressHandler) {
	t.Helper()

	catalog, err := challenge.NewCatalog(challenge.DefaultTemplates())
	require.NoError(t, err)

	generate := NewGenerateChallengesHandler(catalog, store, challenge.FixedOrderStrategy{}, nil, time.UTC)
	complete := NewCompleteChallengeHandler(store, nil)
	update := NewUpdateChallengeProgressHandler(store)
	return generate, complete, update
}

func TestGenerateChallengesHandler_Idempotent(t *testing.T) {
	store := memory.NewStore()
	generate, _, _ := challengeFixtures(t, store)
	ctx := context.Background()

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

	first, err := generate.Handle(ctx, GenerateChallengesCommand{
		UserID: "u1", Period: challenge.PeriodDaily, Now: now,
	})
	require.NoError(t, err)
	assert.True(t, first.Generated)
	assert.Equal(t, "2026-03-05", first.PeriodKey)
	require.Len(t, first.Challenges, challenge.DailyGenerationCount)

	// Later the same day: the identical set, no new instances.
	second, err := generate.Handle(ctx, GenerateChallengesCommand{
		UserID: "u1", Period: challenge.PeriodDaily, Now: now.Add(8 * time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, second.Generated)
	require.Len(t, second.Challenges, challenge.DailyGenerationCount)
	for i := range first.Challenges {
		assert.Equal(t, first.Challenges[i].ID, second.Challenges[i].ID)
	}

	// The next day generates a fresh set.
	third, err := generate.Handle(ctx, GenerateChallengesCommand{
		UserID: "u1", Period: challenge.PeriodDaily, Now: now.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.True(t, third.Generated)
	assert.NotEqual(t, first.Challenges[0].ID, third.Challenges[0].ID)
}

func TestGenerateChallengesHandler_InstanceShape(t *testing.T) {
	store := memory.NewStore()
	generate, _, _ := challengeFixtures(t, store)
	ctx := context.Background()

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	result, err := generate.Handle(ctx, GenerateChallengesCommand{
		UserID: "u1", Period: challenge.PeriodWeekly, Now: now,
	})
	require.NoError(t, err)
	require.Len(t, result.Challenges, challenge.WeeklyGenerationCount)
	assert.Equal(t, "2026-W10", result.PeriodKey)

	for _, c := range result.Challenges {
		assert.Equal(t, challenge.StateActive, c.State)
		assert.Zero(t, c.Progress)
		assert.Positive(t, c.Target)
		// End of the ISO week containing Thursday 2026-03-05.
		assert.Equal(t, time.Date(2026, 3, 8, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), c.ExpiresAt)
	}
}

func TestCompleteChallengeHandler_WeeklyFajrScenario(t *testing.T) {
	store := memory.NewStore()
	generate, complete, update := challengeFixtures(t, store)
	ctx := context.Background()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	generated, err := generate.Handle(ctx, GenerateChallengesCommand{
		UserID: "u1", Period: challenge.PeriodWeekly, Now: now,
	})
	require.NoError(t, err)

	// Fixed order puts the six-fajr weekly template first.
	target := generated.Challenges[0]
	require.Equal(t, "weekly_fajr_six", target.TemplateID)
	require.Equal(t, 6, target.Target)

	for p := 1; p <= 6; p++ {
		updated, err := update.Handle(ctx, UpdateChallengeProgressCommand{
			ChallengeID: target.ID, Progress: p,
		})
		require.NoError(t, err)
		assert.Equal(t, challenge.StateActive, updated.State, "progress never auto-completes")
	}

	first, err := complete.Handle(ctx, CompleteChallengeCommand{
		ChallengeID: target.ID, Now: now.AddDate(0, 0, 4),
	})
	require.NoError(t, err)
	assert.False(t, first.AlreadyCompleted)
	assert.Equal(t, target.XPReward, first.XPAwarded)
	assert.Equal(t, challenge.StateCompleted, first.Challenge.State)

	second, err := complete.Handle(ctx, CompleteChallengeCommand{
		ChallengeID: target.ID, Now: now.AddDate(0, 0, 4),
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.Zero(t, second.XPAwarded)

	total, err := store.TotalXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(target.XPReward), total, "the reward lands exactly once")
}

// flakyChallengeStore fails the combined state-and-reward write a set number
// of times before delegating to the in-memory store.
type flakyChallengeStore struct {
	*memory.Store
	failures int
}

func (s *flakyChallengeStore) CompleteWithReward(ctx context.Context, instance *challenge.UserChallenge, reward *progression.XPTransaction) (int64, bool, error) {
	if s.failures > 0 {
		s.failures--
		return 0, false, shared.StoreError("challenge", "CompleteWithReward", errors.New("connection reset"))
	}
	return s.Store.CompleteWithReward(ctx, instance, reward)
}

func TestCompleteChallengeHandler_FailedWriteLeavesRewardClaimable(t *testing.T) {
	store := memory.NewStore()
	generate, _, _ := challengeFixtures(t, store)
	ctx := context.Background()

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	generated, err := generate.Handle(ctx, GenerateChallengesCommand{
		UserID: "u1", Period: challenge.PeriodDaily, Now: now,
	})
	require.NoError(t, err)
	target := generated.Challenges[0]

	flaky := &flakyChallengeStore{Store: store, failures: 1}
	complete := NewCompleteChallengeHandler(flaky, nil)

	_, err = complete.Handle(ctx, CompleteChallengeCommand{ChallengeID: target.ID, Now: now})
	require.Error(t, err)

	// The failed attempt persisted nothing: the instance is still ACTIVE
	// and the ledger untouched, so the reward is not stranded.
	stored, err := store.GetInstance(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.StateActive, stored.State)
	total, err := store.TotalXP(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, total)

	// The retry completes the instance and pays the full reward.
	result, err := complete.Handle(ctx, CompleteChallengeCommand{ChallengeID: target.ID, Now: now})
	require.NoError(t, err)
	assert.False(t, result.AlreadyCompleted)
	assert.Equal(t, target.XPReward, result.XPAwarded)
	assert.Equal(t, challenge.StateCompleted, result.Challenge.State)

	total, err = store.TotalXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(target.XPReward), total)
}

func TestCompleteWithReward_SingleShotUnderRace(t *testing.T) {
	store := memory.NewStore()
	generate, _, _ := challengeFixtures(t, store)
	ctx := context.Background()

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	generated, err := generate.Handle(ctx, GenerateChallengesCommand{
		UserID: "u1", Period: challenge.PeriodDaily, Now: now,
	})
	require.NoError(t, err)
	target := generated.Challenges[0]

	// Two callers load the same ACTIVE instance before either commits.
	reward := func() *progression.XPTransaction {
		return &progression.XPTransaction{
			ID:          uuid.NewString(),
			UserID:      target.UserID,
			Amount:      target.XPReward,
			Source:      progression.SourceChallenge,
			SourceID:    target.ID,
			Description: "challenge " + target.TemplateID,
			Timestamp:   now,
		}
	}
	first, err := store.GetInstance(ctx, target.ID)
	require.NoError(t, err)
	second, err := store.GetInstance(ctx, target.ID)
	require.NoError(t, err)
	_, err = first.Complete(now)
	require.NoError(t, err)
	_, err = second.Complete(now)
	require.NoError(t, err)

	total, awarded, err := store.CompleteWithReward(ctx, first, reward())
	require.NoError(t, err)
	assert.True(t, awarded)
	assert.Equal(t, int64(target.XPReward), total)

	// The loser of the race gets awarded=false and writes nothing.
	_, awarded, err = store.CompleteWithReward(ctx, second, reward())
	require.NoError(t, err)
	assert.False(t, awarded)

	total, err = store.TotalXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(target.XPReward), total)
}

func TestCompleteChallengeHandler_ExpiredNeverAwards(t *testing.T) {
	store := memory.NewStore()
	generate, complete, _ := challengeFixtures(t, store)
	ctx := context.Background()

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	generated, err := generate.Handle(ctx, GenerateChallengesCommand{
		UserID: "u1", Period: challenge.PeriodDaily, Now: now,
	})
	require.NoError(t, err)
	target := generated.Challenges[0]

	expired, err := store.ExpireOverdue(ctx, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, challenge.DailyGenerationCount, expired)

	_, err = complete.Handle(ctx, CompleteChallengeCommand{
		ChallengeID: target.ID, Now: now.AddDate(0, 0, 1),
	})
	require.Error(t, err)

	total, err := store.TotalXP(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, total)
}
