package progression

import "github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"

// GamificationProfile is the user-facing view of progression. It is
// derived entirely from the ledger total and the static tables, never
// persisted.
type GamificationProfile struct {
	Level         int      `json:"level"`
	XPWithinLevel int64    `json:"xp_within_level"`
	XPToNextLevel int64    `json:"xp_to_next_level"`
	TotalXP       int64    `json:"total_xp"`
	Rank          string   `json:"rank"`
	Benefits      []string `json:"benefits"`
}

// ProfileFromTotalXP builds the derived profile for a ledger total.
func ProfileFromTotalXP(totalXP int64) (GamificationProfile, error) {
	const op = "ProfileFromTotalXP"

	if totalXP < 0 {
		return GamificationProfile{}, shared.NewDomainError("progression", op,
			shared.ErrNegativeValue, "ledger total cannot be negative")
	}

	level := LevelFromTotalXP(totalXP)
	rank, err := RankFor(level)
	if err != nil {
		return GamificationProfile{}, err
	}

	return GamificationProfile{
		Level:         level,
		XPWithinLevel: XPWithinLevel(totalXP),
		XPToNextLevel: XPToNextLevel(totalXP),
		TotalXP:       totalXP,
		Rank:          rank.Name,
		Benefits:      rank.Benefits,
	}, nil
}

// ResolveLevelUp compares two ledger totals and reports a LevelUpResult
// when the level strictly increased, nil otherwise.
func ResolveLevelUp(previousTotal, newTotal int64) (*LevelUpResult, error) {
	previousLevel := LevelFromTotalXP(previousTotal)
	newLevel := LevelFromTotalXP(newTotal)
	if newLevel <= previousLevel {
		return nil, nil
	}

	rank, err := RankFor(newLevel)
	if err != nil {
		return nil, err
	}
	return &LevelUpResult{
		PreviousLevel:    previousLevel,
		NewLevel:         newLevel,
		NewRank:          rank.Name,
		UnlockedBenefits: BenefitsUnlockedBetween(previousLevel, newLevel),
	}, nil
}
