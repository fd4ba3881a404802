package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/persistence/memory"
)

func TestAwardXPHandler_IncreasesTotal(t *testing.T) {
	store := memory.NewStore()
	handler := NewAwardXPHandler(store, nil)
	ctx := context.Background()

	result, err := handler.Handle(ctx, AwardXPCommand{
		UserID: "u1", Amount: 40, Source: progression.SourcePrayer,
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, int64(40), result.NewTotal)
	assert.Nil(t, result.LevelUp)

	total, err := store.TotalXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), total)
}

func TestAwardXPHandler_LevelUpAtThreshold(t *testing.T) {
	store := memory.NewStore()
	handler := NewAwardXPHandler(store, nil)
	ctx := context.Background()

	result, err := handler.Handle(ctx, AwardXPCommand{
		UserID: "u1", Amount: 100, Source: progression.SourceChallenge,
	})
	require.NoError(t, err)
	require.NotNil(t, result.LevelUp)
	assert.Equal(t, 1, result.LevelUp.PreviousLevel)
	assert.Equal(t, 2, result.LevelUp.NewLevel)
	assert.Equal(t, "New Believer", result.LevelUp.NewRank)
}

func TestAwardXPHandler_SourceIDIdempotent(t *testing.T) {
	store := memory.NewStore()
	handler := NewAwardXPHandler(store, nil)
	ctx := context.Background()

	cmd := AwardXPCommand{
		UserID: "u1", Amount: 50, Source: progression.SourceMilestone,
		SourceID: "streak:2026-03-01:7", Description: "7-day streak",
	}

	first, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, int64(50), second.NewTotal, "total unchanged by the duplicate")
}

func TestAwardXPHandler_NegativeAmounts(t *testing.T) {
	store := memory.NewStore()
	handler := NewAwardXPHandler(store, nil)
	ctx := context.Background()

	_, err := handler.Handle(ctx, AwardXPCommand{
		UserID: "u1", Amount: -10, Source: progression.SourcePrayer,
	})
	require.Error(t, err)

	_, err = handler.Handle(ctx, AwardXPCommand{
		UserID: "u1", Amount: 30, Source: progression.SourcePrayer,
		Timestamp: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	result, err := handler.Handle(ctx, AwardXPCommand{
		UserID: "u1", Amount: -10, Source: progression.SourceCorrection,
		Description: "reverses an accidental double award",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), result.NewTotal)
	assert.Nil(t, result.LevelUp, "a deduction never levels up")
}
