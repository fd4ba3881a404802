// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the engine; the notification layer (external) subscribes to
// them through the event bus.
const (
	// Prayer events
	EventPrayerCompleted  EventType = "prayer.completed"
	EventExemptionOpened  EventType = "prayer.exemption_opened"
	EventExemptionClosed  EventType = "prayer.exemption_closed"
	EventStreakMilestone  EventType = "prayer.streak_milestone"
	EventPerfectDayScored EventType = "prayer.perfect_day"

	// Progression events
	EventXPAwarded EventType = "progression.xp_awarded"
	EventLevelUp   EventType = "progression.level_up"

	// Badge events
	EventBadgeEarned EventType = "badge.earned"

	// Challenge events
	EventChallengesGenerated EventType = "challenge.generated"
	EventChallengeCompleted  EventType = "challenge.completed"
	EventChallengeExpired    EventType = "challenge.expired"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Prayer Events
// ═══════════════════════════════════════════════════════════════════════════

// PrayerCompletedEvent is emitted when a prayer completion is recorded.
type PrayerCompletedEvent struct {
	BaseEvent
	Prayer        string    `json:"prayer"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	CompletedAt   time.Time `json:"completed_at"`
	Early         bool      `json:"early"`
	HasReflection bool      `json:"has_reflection"`
}

// Payload implements Event interface.
func (e PrayerCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"prayer":         e.Prayer,
		"scheduled_at":   e.ScheduledAt,
		"completed_at":   e.CompletedAt,
		"early":          e.Early,
		"has_reflection": e.HasReflection,
	}
}

// NewPrayerCompletedEvent creates a prayer completed event.
func NewPrayerCompletedEvent(userID, prayer string, scheduledAt, completedAt time.Time, hasReflection bool) PrayerCompletedEvent {
	return PrayerCompletedEvent{
		BaseEvent:     NewBaseEvent(EventPrayerCompleted, userID),
		Prayer:        prayer,
		ScheduledAt:   scheduledAt,
		CompletedAt:   completedAt,
		Early:         completedAt.Before(scheduledAt),
		HasReflection: hasReflection,
	}
}

// StreakMilestoneEvent is emitted when a streak crosses a milestone length.
type StreakMilestoneEvent struct {
	BaseEvent
	Milestone     int `json:"milestone"`
	CurrentStreak int `json:"current_streak"`
	XPBonus       int `json:"xp_bonus"`
}

// Payload implements Event interface.
func (e StreakMilestoneEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"milestone":      e.Milestone,
		"current_streak": e.CurrentStreak,
		"xp_bonus":       e.XPBonus,
	}
}

// NewStreakMilestoneEvent creates a streak milestone event.
func NewStreakMilestoneEvent(userID string, milestone, currentStreak, xpBonus int) StreakMilestoneEvent {
	return StreakMilestoneEvent{
		BaseEvent:     NewBaseEvent(EventStreakMilestone, userID),
		Milestone:     milestone,
		CurrentStreak: currentStreak,
		XPBonus:       xpBonus,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPAwardedEvent is emitted when XP is appended to the ledger.
type XPAwardedEvent struct {
	BaseEvent
	Amount   int    `json:"amount"`
	Source   string `json:"source"`
	SourceID string `json:"source_id,omitempty"`
	NewTotal int    `json:"new_total"`
}

// Payload implements Event interface.
func (e XPAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":    e.Amount,
		"source":    e.Source,
		"source_id": e.SourceID,
		"new_total": e.NewTotal,
	}
}

// NewXPAwardedEvent creates an XP awarded event.
func NewXPAwardedEvent(userID string, amount int, source, sourceID string, newTotal int) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent: NewBaseEvent(EventXPAwarded, userID),
		Amount:    amount,
		Source:    source,
		SourceID:  sourceID,
		NewTotal:  newTotal,
	}
}

// LevelUpEvent is emitted when a user's level strictly increases.
type LevelUpEvent struct {
	BaseEvent
	PreviousLevel int      `json:"previous_level"`
	NewLevel      int      `json:"new_level"`
	NewRank       string   `json:"new_rank"`
	Benefits      []string `json:"benefits,omitempty"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_level": e.PreviousLevel,
		"new_level":      e.NewLevel,
		"new_rank":       e.NewRank,
		"benefits":       e.Benefits,
	}
}

// NewLevelUpEvent creates a level up event.
func NewLevelUpEvent(userID string, previousLevel, newLevel int, newRank string, benefits []string) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent:     NewBaseEvent(EventLevelUp, userID),
		PreviousLevel: previousLevel,
		NewLevel:      newLevel,
		NewRank:       newRank,
		Benefits:      benefits,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Badge Events
// ═══════════════════════════════════════════════════════════════════════════

// BadgeEarnedEvent is emitted when a badge is awarded for the first time.
type BadgeEarnedEvent struct {
	BaseEvent
	BadgeID   string `json:"badge_id"`
	BadgeName string `json:"badge_name"`
	Rarity    string `json:"rarity"`
	XPAwarded int    `json:"xp_awarded"`
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"badge_id":   e.BadgeID,
		"badge_name": e.BadgeName,
		"rarity":     e.Rarity,
		"xp_awarded": e.XPAwarded,
	}
}

// NewBadgeEarnedEvent creates a badge earned event.
func NewBadgeEarnedEvent(userID, badgeID, badgeName, rarity string, xpAwarded int) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent: NewBaseEvent(EventBadgeEarned, userID),
		BadgeID:   badgeID,
		BadgeName: badgeName,
		Rarity:    rarity,
		XPAwarded: xpAwarded,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Challenge Events
// ═══════════════════════════════════════════════════════════════════════════

// ChallengeCompletedEvent is emitted when a challenge transitions to COMPLETED.
type ChallengeCompletedEvent struct {
	BaseEvent
	ChallengeID string `json:"challenge_id"`
	TemplateID  string `json:"template_id"`
	Period      string `json:"period"`
	XPAwarded   int    `json:"xp_awarded"`
}

// Payload implements Event interface.
func (e ChallengeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"challenge_id": e.ChallengeID,
		"template_id":  e.TemplateID,
		"period":       e.Period,
		"xp_awarded":   e.XPAwarded,
	}
}

// NewChallengeCompletedEvent creates a challenge completed event.
func NewChallengeCompletedEvent(userID, challengeID, templateID, period string, xpAwarded int) ChallengeCompletedEvent {
	return ChallengeCompletedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeCompleted, userID),
		ChallengeID: challengeID,
		TemplateID:  templateID,
		Period:      period,
		XPAwarded:   xpAwarded,
	}
}

// ChallengesGeneratedEvent is emitted when a period's instances are created.
type ChallengesGeneratedEvent struct {
	BaseEvent
	Period      string   `json:"period"`
	PeriodKey   string   `json:"period_key"`
	TemplateIDs []string `json:"template_ids"`
}

// Payload implements Event interface.
func (e ChallengesGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"period":       e.Period,
		"period_key":   e.PeriodKey,
		"template_ids": e.TemplateIDs,
	}
}

// NewChallengesGeneratedEvent creates a challenges generated event.
func NewChallengesGeneratedEvent(userID, period, periodKey string, templateIDs []string) ChallengesGeneratedEvent {
	return ChallengesGeneratedEvent{
		BaseEvent:   NewBaseEvent(EventChallengesGenerated, userID),
		Period:      period,
		PeriodKey:   periodKey,
		TemplateIDs: templateIDs,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Publisher
// ═══════════════════════════════════════════════════════════════════════════

// EventPublisher publishes domain events to interested subscribers.
// Publishing is best-effort; the engine's state transitions never depend on
// delivery.
type EventPublisher interface {
	Publish(event Event) error
}

// NopPublisher discards all events. Useful in tests and tools.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
