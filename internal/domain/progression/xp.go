// Package progression holds the experience ledger and the level curve
// derived from it. A user's level is never stored: it is a pure function
// of the sum of their ledger, so the ledger is the single source of truth
// and levels can always be recomputed from scratch.
package progression

import (
	"strings"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// XPSource identifies what kind of activity produced a ledger entry.
type XPSource string

const (
	SourcePrayer     XPSource = "prayer"
	SourceStreakDay  XPSource = "streak_day"
	SourceBadge      XPSource = "badge"
	SourceChallenge  XPSource = "challenge"
	SourceMilestone  XPSource = "milestone"
	SourceCorrection XPSource = "correction"
)

// AllSources lists every valid ledger source.
func AllSources() []XPSource {
	return []XPSource{
		SourcePrayer,
		SourceStreakDay,
		SourceBadge,
		SourceChallenge,
		SourceMilestone,
		SourceCorrection,
	}
}

func (s XPSource) IsValid() bool {
	switch s {
	case SourcePrayer, SourceStreakDay, SourceBadge, SourceChallenge,
		SourceMilestone, SourceCorrection:
		return true
	}
	return false
}

func (s XPSource) String() string {
	return string(s)
}

// XPTransaction is one append-only ledger entry. Entries are never
// updated or deleted; mistakes are compensated with a correction entry.
type XPTransaction struct {
	ID          string
	UserID      string
	Amount      int
	Source      XPSource
	SourceID    string // identifies the originating object, used for idempotency
	Description string
	Timestamp   time.Time
}

// Validate checks ledger entry invariants. Negative amounts are allowed
// only for corrections, and a correction must carry a justification in
// its description.
func (t *XPTransaction) Validate() error {
	const op = "XPTransaction.Validate"

	if t.ID == "" {
		return shared.NewDomainError("progression", op, shared.ErrEmptyValue, "transaction ID is required")
	}
	if t.UserID == "" {
		return shared.NewDomainError("progression", op, shared.ErrEmptyValue, "user ID is required")
	}
	if !t.Source.IsValid() {
		return shared.NewDomainError("progression", op, shared.ErrValidation, "unknown XP source: "+string(t.Source))
	}
	if t.Timestamp.IsZero() {
		return shared.NewDomainError("progression", op, shared.ErrEmptyValue, "timestamp is required")
	}
	if t.Amount < 0 {
		if t.Source != SourceCorrection {
			return shared.NewDomainError("progression", op, shared.ErrNegativeValue,
				"negative amounts are reserved for corrections")
		}
		if strings.TrimSpace(t.Description) == "" {
			return shared.NewDomainError("progression", op, shared.ErrEmptyValue,
				"a correction must state its justification")
		}
	}
	return nil
}
