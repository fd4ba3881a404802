// Package challenge implements time-boxed daily and weekly targets
// generated from a static template catalog. Each user challenge is a
// small state machine: ACTIVE until either completed or its period
// ends, and both COMPLETED and EXPIRED are terminal.
package challenge

import (
	"fmt"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/timeutil"
)

// Period is the challenge cadence.
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

func (p Period) IsValid() bool {
	return p == PeriodDaily || p == PeriodWeekly
}

func (p Period) String() string {
	return string(p)
}

// Key returns the period instance key for a point in time: the
// calendar date for daily challenges, the ISO week for weekly ones.
func (p Period) Key(t time.Time, loc *time.Location) string {
	if p == PeriodWeekly {
		return timeutil.ISOWeekKey(t, loc)
	}
	return timeutil.DayKey(t, loc)
}

// End returns the instant the period instance containing t closes.
func (p Period) End(t time.Time, loc *time.Location) time.Time {
	if p == PeriodWeekly {
		return timeutil.EndOfISOWeek(t, loc)
	}
	return timeutil.EndOfDay(t, loc)
}

// State is the lifecycle position of a user challenge.
type State string

const (
	StateActive    State = "ACTIVE"
	StateCompleted State = "COMPLETED"
	StateExpired   State = "EXPIRED"
)

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateExpired
}

// RequirementKind discriminates what a challenge counts within its
// period.
type RequirementKind string

const (
	// KindCompleteCount counts completed prayers of any type.
	KindCompleteCount RequirementKind = "complete_count"
	// KindSpecificPrayer counts completions of one prayer type.
	KindSpecificPrayer RequirementKind = "specific_prayer_count"
	// KindPerfectDays counts days with all five prayers completed.
	KindPerfectDays RequirementKind = "perfect_days"
	// KindEarlyCount counts completions before the scheduled time.
	KindEarlyCount RequirementKind = "early_count"
	// KindReflectionCount counts completions carrying a reflection.
	KindReflectionCount RequirementKind = "reflection_count"
)

// Requirement states what a template measures. Prayer is set only for
// KindSpecificPrayer.
type Requirement struct {
	Kind   RequirementKind
	Prayer prayer.Type
}

func (r Requirement) Validate() error {
	const op = "Requirement.Validate"

	switch r.Kind {
	case KindCompleteCount, KindPerfectDays, KindEarlyCount, KindReflectionCount:
		if r.Prayer != "" {
			return shared.NewDomainError("challenge", op, shared.ErrValidation,
				fmt.Sprintf("%s requirement does not take a prayer type", r.Kind))
		}
	case KindSpecificPrayer:
		if !r.Prayer.IsValid() {
			return shared.NewDomainError("challenge", op, shared.ErrValidation,
				"specific prayer requirement needs a valid prayer type")
		}
	default:
		return shared.NewDomainError("challenge", op, shared.ErrValidation,
			"unknown requirement kind: "+string(r.Kind))
	}
	return nil
}

// Template is one catalog entry challenges are instantiated from.
type Template struct {
	ID          string
	Name        string
	Description string
	Period      Period
	Target      int
	XPReward    int
	Requirement Requirement
}

func (t Template) Validate() error {
	const op = "Template.Validate"

	if t.ID == "" {
		return shared.NewDomainError("challenge", op, shared.ErrEmptyValue, "template ID is required")
	}
	if t.Name == "" {
		return shared.NewDomainError("challenge", op, shared.ErrEmptyValue, "template name is required")
	}
	if !t.Period.IsValid() {
		return shared.NewDomainError("challenge", op, shared.ErrValidation,
			fmt.Sprintf("template %s has unknown period %q", t.ID, t.Period))
	}
	if t.Target <= 0 {
		return shared.NewDomainError("challenge", op, shared.ErrValueOutOfRange,
			fmt.Sprintf("template %s target must be positive, got %d", t.ID, t.Target))
	}
	if t.XPReward < 0 {
		return shared.NewDomainError("challenge", op, shared.ErrNegativeValue,
			fmt.Sprintf("template %s has negative XP reward", t.ID))
	}
	return t.Requirement.Validate()
}

// UserChallenge is one generated instance tracked for a user.
type UserChallenge struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TemplateID string    `json:"template_id"`
	Period     Period    `json:"period"`
	PeriodKey  string    `json:"period_key"`
	Progress   int       `json:"progress"`
	Target     int       `json:"target"`
	XPReward   int       `json:"xp_reward"`
	State      State     `json:"state"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SetProgress updates progress on an ACTIVE instance. Progress is
// clamped to the target and never completes the challenge on its own.
func (c *UserChallenge) SetProgress(progress int) error {
	const op = "UserChallenge.SetProgress"

	if c.State != StateActive {
		return shared.NewDomainError("challenge", op, shared.ErrInvalidState,
			fmt.Sprintf("cannot update progress of a %s challenge", c.State))
	}
	if progress < 0 {
		return shared.NewDomainError("challenge", op, shared.ErrNegativeValue,
			"progress cannot be negative")
	}
	if progress > c.Target {
		progress = c.Target
	}
	c.Progress = progress
	return nil
}

// Complete transitions ACTIVE → COMPLETED. Completing an already
// COMPLETED challenge reports alreadyDone=true without error; an
// EXPIRED one, or one past its deadline, is a state error.
func (c *UserChallenge) Complete(now time.Time) (alreadyDone bool, err error) {
	const op = "UserChallenge.Complete"

	switch c.State {
	case StateCompleted:
		return true, nil
	case StateExpired:
		return false, shared.NewDomainError("challenge", op, shared.ErrStateTransition,
			"an expired challenge cannot be completed")
	}
	if now.After(c.ExpiresAt) {
		return false, shared.NewDomainError("challenge", op, shared.ErrExpired,
			"challenge deadline has passed")
	}
	c.State = StateCompleted
	c.Progress = c.Target
	return false, nil
}

// Expire transitions ACTIVE → EXPIRED once the deadline has passed.
// Terminal states are left untouched.
func (c *UserChallenge) Expire(now time.Time) bool {
	if c.State != StateActive || !now.After(c.ExpiresAt) {
		return false
	}
	c.State = StateExpired
	return true
}
