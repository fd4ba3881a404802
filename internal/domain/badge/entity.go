// Package badge defines the static achievement catalog and the
// evaluation of user statistics against it. A badge is earned at most
// once per user, ever, guarded by the store's (user, badge) uniqueness
// constraint.
package badge

import (
	"fmt"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// Rarity grades how hard a badge is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityLegendary:
		return true
	}
	return false
}

// RequirementKind discriminates the requirement union.
type RequirementKind string

const (
	// KindTotalCompleted counts every completed prayer event.
	KindTotalCompleted RequirementKind = "total_completed_count"
	// KindStreakLength compares against the user's best streak.
	KindStreakLength RequirementKind = "streak_length"
	// KindSpecificPrayer counts completions of one prayer type.
	KindSpecificPrayer RequirementKind = "specific_prayer_count"
	// KindConsecutivePerfectDays counts the best run of days with all
	// five prayers completed.
	KindConsecutivePerfectDays RequirementKind = "consecutive_perfect_days"
	// KindEarlyCompletion counts events completed before their
	// scheduled time, optionally restricted to one prayer type.
	KindEarlyCompletion RequirementKind = "early_completion_count"
	// KindReflection counts completed events carrying a reflection.
	KindReflection RequirementKind = "reflection_count"
)

// Requirement is the tagged union a badge's threshold is expressed in.
// Prayer is meaningful only for KindSpecificPrayer (required) and
// KindEarlyCompletion (optional filter).
type Requirement struct {
	Kind   RequirementKind
	Prayer prayer.Type
	Value  int
}

// Validate checks the requirement's shape for its kind.
func (r Requirement) Validate() error {
	const op = "Requirement.Validate"

	if r.Value <= 0 {
		return shared.NewDomainError("badge", op, shared.ErrValueOutOfRange,
			fmt.Sprintf("requirement value must be positive, got %d", r.Value))
	}
	switch r.Kind {
	case KindTotalCompleted, KindStreakLength, KindConsecutivePerfectDays, KindReflection:
		if r.Prayer != "" {
			return shared.NewDomainError("badge", op, shared.ErrValidation,
				fmt.Sprintf("%s requirement does not take a prayer type", r.Kind))
		}
	case KindSpecificPrayer:
		if !r.Prayer.IsValid() {
			return shared.NewDomainError("badge", op, shared.ErrValidation,
				"specific prayer requirement needs a valid prayer type")
		}
	case KindEarlyCompletion:
		if r.Prayer != "" && !r.Prayer.IsValid() {
			return shared.NewDomainError("badge", op, shared.ErrValidation,
				"early completion filter is not a valid prayer type")
		}
	default:
		return shared.NewDomainError("badge", op, shared.ErrValidation,
			"unknown requirement kind: "+string(r.Kind))
	}
	return nil
}

// Definition is one catalog entry.
type Definition struct {
	ID          string
	Name        string
	Description string
	Rarity      Rarity
	XPReward    int
	Requirement Requirement
}

func (d Definition) Validate() error {
	const op = "Definition.Validate"

	if d.ID == "" {
		return shared.NewDomainError("badge", op, shared.ErrEmptyValue, "badge ID is required")
	}
	if d.Name == "" {
		return shared.NewDomainError("badge", op, shared.ErrEmptyValue, "badge name is required")
	}
	if !d.Rarity.IsValid() {
		return shared.NewDomainError("badge", op, shared.ErrValidation,
			fmt.Sprintf("badge %s has unknown rarity %q", d.ID, d.Rarity))
	}
	if d.XPReward < 0 {
		return shared.NewDomainError("badge", op, shared.ErrNegativeValue,
			fmt.Sprintf("badge %s has negative XP reward", d.ID))
	}
	if err := d.Requirement.Validate(); err != nil {
		return err
	}
	return nil
}

// UserBadge records one earned badge.
type UserBadge struct {
	UserID    string    `json:"user_id"`
	BadgeID   string    `json:"badge_id"`
	EarnedAt  time.Time `json:"earned_at"`
	XPAwarded int       `json:"xp_awarded"`
}

// Progress is the user-facing position toward one badge.
type Progress struct {
	BadgeID string `json:"badge_id"`
	Current int    `json:"current"`
	Target  int    `json:"target"`
	Earned  bool   `json:"earned"`
}
