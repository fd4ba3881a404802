package challenge

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

func TestDefaultCatalog_Valid(t *testing.T) {
	catalog, err := NewCatalog(DefaultTemplates())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(catalog.ForPeriod(PeriodDaily)), DailyGenerationCount)
	assert.GreaterOrEqual(t, len(catalog.ForPeriod(PeriodWeekly)), WeeklyGenerationCount)

	tpl, err := catalog.Get("weekly_fajr_six")
	require.NoError(t, err)
	assert.Equal(t, 6, tpl.Target)

	_, err = catalog.Get("nonexistent")
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestNewCatalog_RejectsDefects(t *testing.T) {
	daily := func(id string) Template {
		return Template{
			ID: id, Name: "T " + id, Period: PeriodDaily, Target: 1, XPReward: 10,
			Requirement: Requirement{Kind: KindCompleteCount},
		}
	}
	weekly := func(id string) Template {
		tpl := daily(id)
		tpl.Period = PeriodWeekly
		return tpl
	}
	enough := []Template{
		daily("d1"), daily("d2"), daily("d3"), weekly("w1"), weekly("w2"),
	}

	t.Run("valid baseline", func(t *testing.T) {
		_, err := NewCatalog(enough)
		require.NoError(t, err)
	})

	t.Run("too few daily templates", func(t *testing.T) {
		_, err := NewCatalog([]Template{daily("d1"), weekly("w1"), weekly("w2")})
		require.Error(t, err)
		assert.True(t, shared.IsFatal(err))
	})

	t.Run("duplicate ID", func(t *testing.T) {
		_, err := NewCatalog(append(enough, daily("d1")))
		require.Error(t, err)
	})

	t.Run("zero target", func(t *testing.T) {
		bad := daily("d4")
		bad.Target = 0
		_, err := NewCatalog(append(enough, bad))
		require.Error(t, err)
	})
}

func TestPeriod_Key(t *testing.T) {
	// Thursday 2026-03-05 is in ISO week 10.
	at := time.Date(2026, 3, 5, 13, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-05", PeriodDaily.Key(at, time.UTC))
	assert.Equal(t, "2026-W10", PeriodWeekly.Key(at, time.UTC))
}

func activeChallenge(expiresAt time.Time) *UserChallenge {
	return &UserChallenge{
		ID: "c1", UserID: "u1", TemplateID: "daily_all_five",
		Period: PeriodDaily, PeriodKey: "2026-03-05",
		Progress: 0, Target: 5, XPReward: 50,
		State: StateActive, ExpiresAt: expiresAt,
	}
}

func TestUserChallenge_SetProgress(t *testing.T) {
	deadline := time.Date(2026, 3, 5, 23, 59, 59, 0, time.UTC)
	c := activeChallenge(deadline)

	require.NoError(t, c.SetProgress(3))
	assert.Equal(t, 3, c.Progress)
	assert.Equal(t, StateActive, c.State, "progress never auto-completes")

	require.NoError(t, c.SetProgress(9))
	assert.Equal(t, 5, c.Progress, "progress clamps to target")

	require.Error(t, c.SetProgress(-1))

	c.State = StateCompleted
	err := c.SetProgress(2)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestUserChallenge_Complete(t *testing.T) {
	deadline := time.Date(2026, 3, 5, 23, 59, 59, 0, time.UTC)

	t.Run("before deadline", func(t *testing.T) {
		c := activeChallenge(deadline)
		already, err := c.Complete(deadline.Add(-time.Hour))
		require.NoError(t, err)
		assert.False(t, already)
		assert.Equal(t, StateCompleted, c.State)
		assert.Equal(t, c.Target, c.Progress)
	})

	t.Run("second complete is a no-op", func(t *testing.T) {
		c := activeChallenge(deadline)
		_, err := c.Complete(deadline.Add(-time.Hour))
		require.NoError(t, err)

		already, err := c.Complete(deadline.Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, already)
	})

	t.Run("past deadline", func(t *testing.T) {
		c := activeChallenge(deadline)
		_, err := c.Complete(deadline.Add(time.Second))
		require.Error(t, err)
	})

	t.Run("expired is terminal", func(t *testing.T) {
		c := activeChallenge(deadline)
		require.True(t, c.Expire(deadline.Add(time.Second)))

		_, err := c.Complete(deadline.Add(2 * time.Second))
		require.Error(t, err)
	})
}

func TestUserChallenge_Expire(t *testing.T) {
	deadline := time.Date(2026, 3, 5, 23, 59, 59, 0, time.UTC)

	c := activeChallenge(deadline)
	assert.False(t, c.Expire(deadline), "deadline instant itself is still valid")
	assert.True(t, c.Expire(deadline.Add(time.Second)))
	assert.Equal(t, StateExpired, c.State)

	assert.False(t, c.Expire(deadline.Add(time.Minute)), "terminal states stay put")

	done := activeChallenge(deadline)
	_, err := done.Complete(deadline.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, done.Expire(deadline.Add(time.Second)))
	assert.Equal(t, StateCompleted, done.State)
}

func TestSeededShuffleStrategy_Deterministic(t *testing.T) {
	strategy := NewSeededShuffleStrategy()
	catalog, err := NewCatalog(DefaultTemplates())
	require.NoError(t, err)
	daily := catalog.ForPeriod(PeriodDaily)

	first := strategy.Select(daily, DailyGenerationCount, "u1", "2026-03-05")
	second := strategy.Select(daily, DailyGenerationCount, "u1", "2026-03-05")

	require.Len(t, first, DailyGenerationCount)
	assert.Equal(t, first, second, "same user and period key must agree")

	ids := make(map[string]bool)
	for _, tpl := range first {
		assert.False(t, ids[tpl.ID], "no duplicate picks")
		ids[tpl.ID] = true
	}
}

func TestSeededShuffleStrategy_VariesAcrossUsersAndPeriods(t *testing.T) {
	strategy := NewSeededShuffleStrategy()
	catalog, err := NewCatalog(DefaultTemplates())
	require.NoError(t, err)
	daily := catalog.ForPeriod(PeriodDaily)

	pick := func(userID, key string) string {
		out := strategy.Select(daily, DailyGenerationCount, userID, key)
		s := ""
		for _, tpl := range out {
			s += tpl.ID + ","
		}
		return s
	}

	// With 4 templates choose 3 there are 24 orderings; across many
	// users at least one must differ from u0's.
	base := pick("u0", "2026-03-05")
	varied := false
	for i := 1; i < 50 && !varied; i++ {
		varied = pick(fmt.Sprintf("u%d", i), "2026-03-05") != base
	}
	assert.True(t, varied, "selection should depend on the user")

	variedPeriod := false
	for d := 1; d < 50 && !variedPeriod; d++ {
		variedPeriod = pick("u0", fmt.Sprintf("2026-03-%02d", d)) != base
	}
	assert.True(t, variedPeriod, "selection should depend on the period key")
}

func TestSeededShuffleStrategy_CountAtLeastPool(t *testing.T) {
	strategy := NewSeededShuffleStrategy()
	templates := DefaultTemplates()[:2]

	out := strategy.Select(templates, 5, "u1", "2026-03-05")
	assert.Len(t, out, 2)
}
