// Package prayer contains domain entities and business logic for the prayer
// completion log: completion events, exemption windows, and the consistency
// streak calculation derived from them.
package prayer

import (
	"strings"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Prayer Type Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Type identifies one of the five daily prayers.
type Type string

const (
	Fajr    Type = "fajr"
	Dhuhr   Type = "dhuhr"
	Asr     Type = "asr"
	Maghrib Type = "maghrib"
	Isha    Type = "isha"
)

// DailyPrayerCount is the number of prayers scheduled per day.
const DailyPrayerCount = 5

// AllTypes returns the five prayer types in daily order.
func AllTypes() []Type {
	return []Type{Fajr, Dhuhr, Asr, Maghrib, Isha}
}

// IsValid checks if the prayer type is one of the five daily prayers.
func (t Type) IsValid() bool {
	switch t {
	case Fajr, Dhuhr, Asr, Maghrib, Isha:
		return true
	}
	return false
}

// String returns the string representation.
func (t Type) String() string {
	return string(t)
}

// ParseType parses a string into a prayer Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewDomainError("prayer", "ParseType", shared.ErrValidation, "unknown prayer type: "+s)
	}
	return t, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Completion Event
// ═══════════════════════════════════════════════════════════════════════════

// CompletionEvent is one scheduled prayer occurrence for one user.
// Events are immutable once written; only Completed/CompletedAt/HasReflection
// may transition from unset to set.
type CompletionEvent struct {
	// ID is the unique event identifier (UUID).
	ID string

	// UserID is the owner of the event.
	UserID string

	// Prayer is which of the five daily prayers this event represents.
	Prayer Type

	// ScheduledAt is when the prayer window opened (from the external
	// Schedule Provider). An event with a zero ScheduledAt is malformed
	// and skipped by all aggregations.
	ScheduledAt time.Time

	// CompletedAt is when the user marked the prayer complete, nil if not.
	CompletedAt *time.Time

	// Completed indicates the prayer was performed.
	Completed bool

	// HasReflection indicates the user attached a reflection note.
	HasReflection bool
}

// Validate checks structural validity of the event.
func (e *CompletionEvent) Validate() error {
	if e.UserID == "" {
		return shared.NewDomainError("prayer", "Validate", shared.ErrEmptyValue, "user ID is required")
	}
	if !e.Prayer.IsValid() {
		return shared.NewDomainError("prayer", "Validate", shared.ErrValidation, "invalid prayer type")
	}
	if e.ScheduledAt.IsZero() {
		return shared.NewDomainError("prayer", "Validate", shared.ErrValidation, "missing scheduled timestamp")
	}
	if e.Completed && e.CompletedAt == nil {
		return shared.NewDomainError("prayer", "Validate", shared.ErrValidation, "completed event without completion timestamp")
	}
	return nil
}

// IsMalformed reports whether the event lacks its scheduled timestamp.
// Malformed events are skipped with a warning, never a failure.
func (e *CompletionEvent) IsMalformed() bool {
	return e.ScheduledAt.IsZero()
}

// IsEarly reports whether the prayer was completed before its scheduled time.
func (e *CompletionEvent) IsEarly() bool {
	return e.Completed && e.CompletedAt != nil && e.CompletedAt.Before(e.ScheduledAt)
}

// MarkCompleted transitions the event from unset to completed.
// Re-marking an already completed event is rejected: the log is append-only
// and completion is a one-way transition.
func (e *CompletionEvent) MarkCompleted(at time.Time, withReflection bool) error {
	if e.Completed {
		return shared.NewDomainError("prayer", "MarkCompleted", shared.ErrStateTransition, "event already completed")
	}
	if at.IsZero() {
		return shared.NewDomainError("prayer", "MarkCompleted", shared.ErrValidation, "completion timestamp is required")
	}
	e.Completed = true
	e.CompletedAt = &at
	if withReflection {
		e.HasReflection = true
	}
	return nil
}

// AttachReflection sets the reflection flag on a completed event.
func (e *CompletionEvent) AttachReflection() error {
	if !e.Completed {
		return shared.NewDomainError("prayer", "AttachReflection", shared.ErrInvalidState, "cannot reflect on an incomplete prayer")
	}
	e.HasReflection = true
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Exemption Window
// ═══════════════════════════════════════════════════════════════════════════

// ExemptionWindow is a date range during which missed prayers must not break
// a streak (medical or travel exemptions). Bounds are inclusive at the
// calendar-day level; a nil EndDate means "through today".
type ExemptionWindow struct {
	// ID is the unique window identifier (UUID).
	ID string

	// UserID is the owner of the window.
	UserID string

	// StartDate is the first exempt day.
	StartDate time.Time

	// EndDate is the last exempt day, nil while the window is open.
	EndDate *time.Time

	// Reason is an optional free-form note.
	Reason string
}

// Validate checks structural validity of the window.
func (w *ExemptionWindow) Validate() error {
	if w.UserID == "" {
		return shared.NewDomainError("prayer", "Validate", shared.ErrEmptyValue, "user ID is required")
	}
	if w.StartDate.IsZero() {
		return shared.NewDomainError("prayer", "Validate", shared.ErrValidation, "start date is required")
	}
	if w.EndDate != nil && w.EndDate.Before(w.StartDate) {
		return shared.NewDomainError("prayer", "Validate", shared.ErrValidation, "end date before start date")
	}
	return nil
}

// IsOpen reports whether the window has no end date yet.
func (w *ExemptionWindow) IsOpen() bool {
	return w.EndDate == nil
}

// Covers reports whether the given instant falls on an exempt calendar day
// in loc. Bounds are inclusive; an open window covers every day from
// StartDate onward.
func (w *ExemptionWindow) Covers(t time.Time, loc *time.Location) bool {
	day := dayStart(t, loc)
	start := dayStart(w.StartDate, loc)
	if day.Before(start) {
		return false
	}
	if w.EndDate == nil {
		return true
	}
	end := dayStart(*w.EndDate, loc)
	return !day.After(end)
}

// Close sets the end date on an open window.
func (w *ExemptionWindow) Close(end time.Time) error {
	if w.EndDate != nil {
		return shared.NewDomainError("prayer", "Close", shared.ErrInvalidState, "exemption window already closed")
	}
	if end.Before(w.StartDate) {
		return shared.NewDomainError("prayer", "Close", shared.ErrValidation, "end date before start date")
	}
	w.EndDate = &end
	return nil
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
