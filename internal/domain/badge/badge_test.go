package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

func TestDefaultCatalog_Valid(t *testing.T) {
	catalog, err := NewCatalog(DefaultDefinitions())
	require.NoError(t, err)
	assert.Equal(t, len(DefaultDefinitions()), catalog.Len())

	d, err := catalog.Get("first_steps")
	require.NoError(t, err)
	assert.Equal(t, "First Steps", d.Name)

	_, err = catalog.Get("nonexistent")
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestNewCatalog_RejectsDefects(t *testing.T) {
	valid := Definition{
		ID: "b1", Name: "Badge", Rarity: RarityCommon, XPReward: 10,
		Requirement: Requirement{Kind: KindTotalCompleted, Value: 5},
	}

	t.Run("duplicate ID", func(t *testing.T) {
		_, err := NewCatalog([]Definition{valid, valid})
		require.Error(t, err)
		assert.True(t, shared.IsFatal(err))
	})

	t.Run("zero target", func(t *testing.T) {
		bad := valid
		bad.Requirement.Value = 0
		_, err := NewCatalog([]Definition{bad})
		require.Error(t, err)
	})

	t.Run("specific prayer without type", func(t *testing.T) {
		bad := valid
		bad.Requirement = Requirement{Kind: KindSpecificPrayer, Value: 5}
		_, err := NewCatalog([]Definition{bad})
		require.Error(t, err)
	})

	t.Run("prayer on counting requirement", func(t *testing.T) {
		bad := valid
		bad.Requirement = Requirement{Kind: KindReflection, Prayer: prayer.Fajr, Value: 5}
		_, err := NewCatalog([]Definition{bad})
		require.Error(t, err)
	})

	t.Run("unknown rarity", func(t *testing.T) {
		bad := valid
		bad.Rarity = "mythic"
		_, err := NewCatalog([]Definition{bad})
		require.Error(t, err)
	})
}

func statsFixture(t *testing.T) *UserStatistics {
	t.Helper()

	base := time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC)
	mk := func(id string, p prayer.Type, dayOffset int, completed, early, reflection bool) *prayer.CompletionEvent {
		scheduled := base.AddDate(0, 0, dayOffset)
		e := &prayer.CompletionEvent{
			ID: id, UserID: "u1", Prayer: p, ScheduledAt: scheduled,
		}
		if completed {
			at := scheduled.Add(10 * time.Minute)
			if early {
				at = scheduled.Add(-10 * time.Minute)
			}
			e.Completed = true
			e.CompletedAt = &at
			e.HasReflection = reflection
		}
		return e
	}

	events := []*prayer.CompletionEvent{
		mk("e1", prayer.Fajr, 0, true, true, true),
		mk("e2", prayer.Dhuhr, 0, true, false, false),
		mk("e3", prayer.Asr, 0, true, false, false),
		mk("e4", prayer.Maghrib, 0, false, false, false),
		mk("e5", prayer.Fajr, 1, true, true, false),
	}
	days := []prayer.DaySummary{
		{Day: base, Scheduled: 4, Completed: 3},
		{Day: base.AddDate(0, 0, 1), Scheduled: 1, Completed: 1},
	}

	return BuildStatistics(events, days, 2)
}

func TestBuildStatistics(t *testing.T) {
	stats := statsFixture(t)

	assert.Equal(t, 4, stats.TotalCompleted)
	assert.Equal(t, 2, stats.ByPrayer[prayer.Fajr])
	assert.Equal(t, 0, stats.ByPrayer[prayer.Maghrib])
	assert.Equal(t, 2, stats.EarlyTotal)
	assert.Equal(t, 2, stats.EarlyByPrayer[prayer.Fajr])
	assert.Equal(t, 1, stats.Reflections)
	assert.Equal(t, 2, stats.BestStreak)
	assert.Equal(t, 0, stats.BestPerfectRun)
}

func TestBuildStatistics_PerfectRunRequiresAdjacency(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	days := []prayer.DaySummary{
		{Day: base, Scheduled: 5, Completed: 5},
		{Day: base.AddDate(0, 0, 1), Scheduled: 5, Completed: 5},
		{Day: base.AddDate(0, 0, 2), Scheduled: 5, Completed: 4},
		{Day: base.AddDate(0, 0, 3), Scheduled: 5, Completed: 5},
	}

	stats := BuildStatistics(nil, days, 0)
	assert.Equal(t, 2, stats.BestPerfectRun)
}

func TestProgressFor_CapsAtTarget(t *testing.T) {
	stats := statsFixture(t)

	d := Definition{
		ID: "b1", Name: "Badge", Rarity: RarityCommon, XPReward: 10,
		Requirement: Requirement{Kind: KindTotalCompleted, Value: 3},
	}

	p := stats.ProgressFor(d)
	assert.Equal(t, 3, p.Current) // metric is 4, capped at target
	assert.Equal(t, 3, p.Target)
	assert.True(t, stats.Satisfies(d))

	d.Requirement.Value = 10
	p = stats.ProgressFor(d)
	assert.Equal(t, 4, p.Current)
	assert.False(t, stats.Satisfies(d))
}

func TestMetricFor_EarlyFilter(t *testing.T) {
	stats := statsFixture(t)

	all := Requirement{Kind: KindEarlyCompletion, Value: 5}
	fajrOnly := Requirement{Kind: KindEarlyCompletion, Prayer: prayer.Fajr, Value: 5}
	ishaOnly := Requirement{Kind: KindEarlyCompletion, Prayer: prayer.Isha, Value: 5}

	assert.Equal(t, 2, stats.MetricFor(all))
	assert.Equal(t, 2, stats.MetricFor(fajrOnly))
	assert.Equal(t, 0, stats.MetricFor(ishaOnly))
}
