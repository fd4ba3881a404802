package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD COMPLETION COMMAND
// Marks a prayer event completed, awards its XP, and checks the refreshed
// streak for milestone bonuses. This is the write path both devices of a user
// hit, so everything downstream of the event update is idempotent.
// ══════════════════════════════════════════════════════════════════════════════

// XP amounts for the completion path.
const (
	CompletionXP      = 10
	ReflectionBonusXP = 5
)

// streakMilestones maps a streak length to its one-time bonus. The
// bonus is keyed to the run's starting day, so a broken and rebuilt
// streak can earn it again.
var streakMilestones = []struct {
	Days  int
	Bonus int
}{
	{7, 50},
	{30, 250},
	{100, 1000},
}

// RecordCompletionCommand contains the data to record a completion.
type RecordCompletionCommand struct {
	// UserID is the user completing the prayer.
	UserID string

	// EventID identifies an existing scheduled event. Leave empty to
	// record an ad-hoc completion, in which case Prayer and
	// ScheduledAt are required.
	EventID string

	// Prayer is the prayer type (ad-hoc events only).
	Prayer prayer.Type

	// ScheduledAt is the scheduled time (ad-hoc events only).
	ScheduledAt time.Time

	// CompletedAt is when the prayer was completed (defaults to now).
	CompletedAt time.Time

	// WithReflection marks the completion as carrying a reflection.
	WithReflection bool
}

// Validate validates the command.
func (c RecordCompletionCommand) Validate() error {
	const op = "RecordCompletionCommand.Validate"

	if c.UserID == "" {
		return shared.NewDomainError("command", op, shared.ErrEmptyValue, "user ID is required")
	}
	if c.EventID == "" {
		if !c.Prayer.IsValid() {
			return shared.NewDomainError("command", op, shared.ErrValidation,
				"ad-hoc completion needs a valid prayer type")
		}
		if c.ScheduledAt.IsZero() {
			return shared.NewDomainError("command", op, shared.ErrEmptyValue,
				"ad-hoc completion needs a scheduled time")
		}
	}
	return nil
}

// RecordCompletionResult contains the outcome of recording a completion.
type RecordCompletionResult struct {
	// EventID is the recorded event, newly created for ad-hoc
	// completions.
	EventID string

	// AlreadyCompleted is true when the event was completed before
	// this call; nothing else was changed or awarded.
	AlreadyCompleted bool

	// XPAwarded is the completion XP applied by this call.
	XPAwarded int

	// LevelUp is set when the award crossed a level threshold.
	LevelUp *progression.LevelUpResult

	// CurrentStreak and BestStreak reflect the refreshed calculation.
	CurrentStreak int
	BestStreak    int

	// MilestonesHit lists streak milestones whose bonus this call
	// applied.
	MilestonesHit []int
}

// RecordCompletionHandler handles the RecordCompletionCommand.
type RecordCompletionHandler struct {
	events     prayer.Repository
	awardXP    *AwardXPHandler
	calculator *prayer.StreakCalculator
	publisher  shared.EventPublisher
	location   *time.Location
}

// NewRecordCompletionHandler creates a new RecordCompletionHandler.
// The location defines the user's day boundary for streak bucketing.
func NewRecordCompletionHandler(
	events prayer.Repository,
	awardXP *AwardXPHandler,
	calculator *prayer.StreakCalculator,
	publisher shared.EventPublisher,
	location *time.Location,
) *RecordCompletionHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if location == nil {
		location = time.UTC
	}
	return &RecordCompletionHandler{
		events:     events,
		awardXP:    awardXP,
		calculator: calculator,
		publisher:  publisher,
		location:   location,
	}
}

// Handle executes the record completion command.
func (h *RecordCompletionHandler) Handle(ctx context.Context, cmd RecordCompletionCommand) (*RecordCompletionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	completedAt := cmd.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	event, err := h.resolveEvent(ctx, cmd)
	if err != nil {
		return nil, err
	}

	result := &RecordCompletionResult{EventID: event.ID}

	if event.Completed {
		result.AlreadyCompleted = true
		return result, nil
	}

	isNew := cmd.EventID == ""
	if err := event.MarkCompleted(completedAt, cmd.WithReflection); err != nil {
		return nil, err
	}
	if isNew {
		err = h.events.InsertEvent(ctx, event)
	} else {
		err = h.events.UpdateEvent(ctx, event)
	}
	if err != nil {
		return nil, fmt.Errorf("record_completion: persist event: %w", err)
	}

	amount := CompletionXP
	if cmd.WithReflection {
		amount += ReflectionBonusXP
	}
	award, err := h.awardXP.Handle(ctx, AwardXPCommand{
		UserID:      cmd.UserID,
		Amount:      amount,
		Source:      progression.SourcePrayer,
		SourceID:    event.ID,
		Description: "completed " + event.Prayer.String(),
		Timestamp:   completedAt,
	})
	if err != nil {
		return nil, err
	}
	if award.Applied {
		result.XPAwarded = amount
	}
	result.LevelUp = award.LevelUp

	_ = h.publisher.Publish(shared.NewPrayerCompletedEvent(
		cmd.UserID, event.Prayer.String(), event.ScheduledAt, completedAt, cmd.WithReflection))

	if err := h.applyStreakBonuses(ctx, cmd.UserID, completedAt, result); err != nil {
		return nil, err
	}

	return result, nil
}

// resolveEvent loads the referenced event or builds an ad-hoc one.
func (h *RecordCompletionHandler) resolveEvent(ctx context.Context, cmd RecordCompletionCommand) (*prayer.CompletionEvent, error) {
	if cmd.EventID != "" {
		event, err := h.events.GetEvent(ctx, cmd.EventID)
		if err != nil {
			return nil, fmt.Errorf("record_completion: load event: %w", err)
		}
		return event, nil
	}
	return &prayer.CompletionEvent{
		ID:          uuid.NewString(),
		UserID:      cmd.UserID,
		Prayer:      cmd.Prayer,
		ScheduledAt: cmd.ScheduledAt,
	}, nil
}

// applyStreakBonuses recomputes the streak and applies any milestone
// bonus the run has reached. The run-start keyed source ID makes each
// bonus single-shot per run even under concurrent completions.
func (h *RecordCompletionHandler) applyStreakBonuses(ctx context.Context, userID string, at time.Time, result *RecordCompletionResult) error {
	events, err := h.events.FetchEvents(ctx, userID, shared.TimeRange{})
	if err != nil {
		return fmt.Errorf("record_completion: fetch events: %w", err)
	}
	exemptions, err := h.events.FetchExemptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("record_completion: fetch exemptions: %w", err)
	}

	streak := h.calculator.Calculate(events, exemptions, h.location)
	result.CurrentStreak = streak.CurrentStreak
	result.BestStreak = streak.BestStreak

	runStart := timeutil.DayKey(streak.CurrentRunStart, h.location)
	for _, m := range streakMilestones {
		if streak.CurrentStreak < m.Days {
			continue
		}
		award, err := h.awardXP.Handle(ctx, AwardXPCommand{
			UserID:      userID,
			Amount:      m.Bonus,
			Source:      progression.SourceMilestone,
			SourceID:    fmt.Sprintf("streak:%s:%d", runStart, m.Days),
			Description: fmt.Sprintf("%d-day streak", m.Days),
			Timestamp:   at,
		})
		if err != nil {
			return err
		}
		if award.Applied {
			result.MilestonesHit = append(result.MilestonesHit, m.Days)
			if result.LevelUp == nil {
				result.LevelUp = award.LevelUp
			}
			_ = h.publisher.Publish(shared.NewStreakMilestoneEvent(
				userID, m.Days, streak.CurrentStreak, m.Bonus))
		}
	}
	return nil
}
