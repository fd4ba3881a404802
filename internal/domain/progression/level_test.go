package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

func TestCumulativeXP_CurveStart(t *testing.T) {
	assert.Equal(t, int64(0), CumulativeXP(1))
	assert.Equal(t, int64(100), CumulativeXP(2))   // +floor(100 * 1.5^0)
	assert.Equal(t, int64(250), CumulativeXP(3))   // +floor(100 * 1.5^1)
	assert.Equal(t, int64(475), CumulativeXP(4))   // +floor(100 * 1.5^2)
	assert.Equal(t, int64(812), CumulativeXP(5))   // +floor(100 * 1.5^3) = +337
	assert.Equal(t, int64(1318), CumulativeXP(6))  // +floor(100 * 1.5^4) = +506
	assert.Equal(t, int64(-1), CumulativeXP(0))
	assert.Equal(t, int64(-1), CumulativeXP(MaxLevel()+1))
}

func TestCumulativeXP_StrictlyIncreasing(t *testing.T) {
	for level := 2; level <= MaxLevel(); level++ {
		require.Greater(t, CumulativeXP(level), CumulativeXP(level-1), "level %d", level)
	}
}

func TestLevelFromTotalXP_ThresholdRoundTrip(t *testing.T) {
	for level := 1; level <= MaxLevel(); level++ {
		require.Equal(t, level, LevelFromTotalXP(CumulativeXP(level)), "level %d", level)
	}
}

func TestLevelFromTotalXP_JustBelowThreshold(t *testing.T) {
	for level := 2; level <= MaxLevel(); level++ {
		require.Equal(t, level-1, LevelFromTotalXP(CumulativeXP(level)-1), "level %d", level)
	}
}

func TestLevelFromTotalXP_Boundaries(t *testing.T) {
	assert.Equal(t, 1, LevelFromTotalXP(0))
	assert.Equal(t, 1, LevelFromTotalXP(99))
	assert.Equal(t, 2, LevelFromTotalXP(100))
	assert.Equal(t, 1, LevelFromTotalXP(-50))
	assert.Equal(t, MaxLevel(), LevelFromTotalXP(1<<62))
}

func TestXPWithinAndToNext(t *testing.T) {
	assert.Equal(t, int64(40), XPWithinLevel(40))
	assert.Equal(t, int64(60), XPToNextLevel(40))
	assert.Equal(t, int64(0), XPWithinLevel(100))
	assert.Equal(t, int64(150), XPToNextLevel(100))
	assert.Equal(t, int64(0), XPToNextLevel(1<<62))
}

func TestValidateDefaults(t *testing.T) {
	// Boot depends on this passing: both entrypoints abort when the
	// static table fails validation.
	require.NoError(t, ValidateDefaults())
}

func TestValidateRankTable(t *testing.T) {
	require.NoError(t, ValidateRankTable(rankTable))

	cases := []struct {
		name  string
		table []Rank
	}{
		{"empty", nil},
		{"does not start at 1", []Rank{{2, 0, "A", nil}}},
		{"gap", []Rank{{1, 4, "A", nil}, {6, 0, "B", nil}}},
		{"overlap", []Rank{{1, 4, "A", nil}, {4, 0, "B", nil}}},
		{"bounded final tier", []Rank{{1, 4, "A", nil}, {5, 9, "B", nil}}},
		{"inverted range", []Rank{{1, 0, "A", nil}, {5, 0, "B", nil}}},
		{"unnamed", []Rank{{1, 0, "", nil}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRankTable(tc.table)
			require.Error(t, err)
			assert.True(t, shared.IsFatal(err))
		})
	}
}

func TestRankFor(t *testing.T) {
	rank, err := RankFor(1)
	require.NoError(t, err)
	assert.Equal(t, "New Believer", rank.Name)

	rank, err = RankFor(5)
	require.NoError(t, err)
	assert.Equal(t, "Seeker", rank.Name)

	rank, err = RankFor(500)
	require.NoError(t, err)
	assert.Equal(t, "Ascendant", rank.Name)

	_, err = RankFor(0)
	require.Error(t, err)
}

func TestProfileFromTotalXP(t *testing.T) {
	profile, err := ProfileFromTotalXP(0)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.Level)
	assert.Equal(t, "New Believer", profile.Rank)
	assert.Equal(t, int64(100), profile.XPToNextLevel)

	profile, err = ProfileFromTotalXP(100)
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Level)
	assert.Equal(t, int64(0), profile.XPWithinLevel)

	_, err = ProfileFromTotalXP(-1)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestResolveLevelUp(t *testing.T) {
	// 0 -> 40: no level change.
	result, err := ResolveLevelUp(0, 40)
	require.NoError(t, err)
	assert.Nil(t, result)

	// 0 -> 250: levels 1 -> 3.
	result, err = ResolveLevelUp(0, 250)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.PreviousLevel)
	assert.Equal(t, 3, result.NewLevel)
	assert.Equal(t, "New Believer", result.NewRank)
	assert.Empty(t, result.UnlockedBenefits)

	// Crossing into a new tier unlocks its benefits.
	result, err = ResolveLevelUp(CumulativeXP(4), CumulativeXP(5))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Seeker", result.NewRank)
	assert.Equal(t, []string{"weekly_challenges"}, result.UnlockedBenefits)
}

func TestXPTransaction_Validate(t *testing.T) {
	valid := func() *XPTransaction {
		return &XPTransaction{
			ID:        "tx-1",
			UserID:    "u1",
			Amount:    10,
			Source:    SourcePrayer,
			Timestamp: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
		}
	}

	require.NoError(t, valid().Validate())

	t.Run("negative amount outside correction", func(t *testing.T) {
		tx := valid()
		tx.Amount = -10
		err := tx.Validate()
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("correction requires justification", func(t *testing.T) {
		tx := valid()
		tx.Amount = -10
		tx.Source = SourceCorrection
		require.Error(t, tx.Validate())

		tx.Description = "reverses duplicate award tx-0"
		require.NoError(t, tx.Validate())
	})

	t.Run("unknown source", func(t *testing.T) {
		tx := valid()
		tx.Source = "bonus"
		require.Error(t, tx.Validate())
	})

	t.Run("missing fields", func(t *testing.T) {
		tx := valid()
		tx.UserID = ""
		require.Error(t, tx.Validate())

		tx = valid()
		tx.Timestamp = time.Time{}
		require.Error(t, tx.Validate())
	})
}
