package progression

import (
	"fmt"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// Rank is a named tier spanning a contiguous range of levels. A
// MaxLevel of 0 marks the final, open-ended tier.
type Rank struct {
	MinLevel int
	MaxLevel int
	Name     string
	Benefits []string
}

// Contains reports whether the rank covers the given level.
func (r Rank) Contains(level int) bool {
	if level < r.MinLevel {
		return false
	}
	return r.MaxLevel == 0 || level <= r.MaxLevel
}

// rankTable is the static tier configuration. Ranges must be contiguous
// and exhaustive from level 1; ValidateRankTable enforces this at
// startup so a bad edit here fails loudly instead of producing wrong
// ranks at runtime.
var rankTable = []Rank{
	{1, 4, "New Believer", []string{"daily_challenges"}},
	{5, 9, "Seeker", []string{"weekly_challenges"}},
	{10, 19, "Devoted", []string{"streak_freeze_token"}},
	{20, 34, "Steadfast", []string{"custom_reminder_sounds"}},
	{35, 54, "Guardian", []string{"priority_support"}},
	{55, 79, "Luminary", []string{"exclusive_themes"}},
	{80, 119, "Sage", []string{"mentor_program_access"}},
	{120, 0, "Ascendant", []string{"lifetime_recognition"}},
}

// ValidateRankTable checks the tier configuration for gaps, overlaps
// and an unbounded final tier. Any defect is a ComputationError: the
// table is wrong, not the input.
func ValidateRankTable(table []Rank) error {
	const op = "ValidateRankTable"

	if len(table) == 0 {
		return shared.NewDomainError("progression", op, shared.ErrComputation, "rank table is empty")
	}
	if table[0].MinLevel != 1 {
		return shared.NewDomainError("progression", op, shared.ErrComputation,
			fmt.Sprintf("rank table must start at level 1, starts at %d", table[0].MinLevel))
	}
	for i, r := range table {
		if r.Name == "" {
			return shared.NewDomainError("progression", op, shared.ErrComputation,
				fmt.Sprintf("rank %d has no name", i))
		}
		last := i == len(table)-1
		if last {
			if r.MaxLevel != 0 {
				return shared.NewDomainError("progression", op, shared.ErrComputation,
					fmt.Sprintf("final rank %q must be open-ended", r.Name))
			}
			continue
		}
		if r.MaxLevel < r.MinLevel {
			return shared.NewDomainError("progression", op, shared.ErrComputation,
				fmt.Sprintf("rank %q has inverted range [%d, %d]", r.Name, r.MinLevel, r.MaxLevel))
		}
		if next := table[i+1]; next.MinLevel != r.MaxLevel+1 {
			return shared.NewDomainError("progression", op, shared.ErrComputation,
				fmt.Sprintf("rank table gap or overlap between %q (ends %d) and %q (starts %d)",
					r.Name, r.MaxLevel, next.Name, next.MinLevel))
		}
	}
	return nil
}

// ValidateDefaults runs ValidateRankTable over the static configuration.
// Entrypoints call it during bootstrap so a bad table edit aborts boot.
func ValidateDefaults() error {
	return ValidateRankTable(rankTable)
}

// RankFor returns the tier containing the given level.
func RankFor(level int) (Rank, error) {
	const op = "RankFor"

	if level < 1 {
		return Rank{}, shared.NewDomainError("progression", op, shared.ErrValueOutOfRange,
			fmt.Sprintf("level must be at least 1, got %d", level))
	}
	for _, r := range rankTable {
		if r.Contains(level) {
			return r, nil
		}
	}
	// Unreachable with a validated table.
	return Rank{}, shared.NewDomainError("progression", op, shared.ErrComputation,
		fmt.Sprintf("no rank covers level %d", level))
}

// BenefitsUnlockedBetween collects the benefits of every tier whose
// threshold falls inside (previousLevel, newLevel].
func BenefitsUnlockedBetween(previousLevel, newLevel int) []string {
	var unlocked []string
	for _, r := range rankTable {
		if r.MinLevel > previousLevel && r.MinLevel <= newLevel {
			unlocked = append(unlocked, r.Benefits...)
		}
	}
	return unlocked
}
