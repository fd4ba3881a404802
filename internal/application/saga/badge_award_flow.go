// Package saga contains business processes that orchestrate multiple
// domain operations in a coordinated manner.
package saga

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/badge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE AWARD FLOW
// Flow: Load Earned Badges → Aggregate Statistics → Check Catalog →
//
//	Award Atomically (badge row + XP entry) → Publish Events
//
// Awarding races are settled at the store: the (user, badge) uniqueness
// constraint means a concurrent evaluation loses the insert and treats the
// conflict as the already-awarded state.
// ══════════════════════════════════════════════════════════════════════════════

// BadgeAwardInput contains the data to evaluate a user's badges.
type BadgeAwardInput struct {
	// UserID is the user to evaluate.
	UserID string

	// Now is the evaluation instant (defaults to the current time).
	Now time.Time
}

// Validate checks if the input is valid.
func (i BadgeAwardInput) Validate() error {
	if i.UserID == "" {
		return shared.NewDomainError("saga", "BadgeAwardInput.Validate",
			shared.ErrEmptyValue, "user ID is required")
	}
	return nil
}

// BadgeAwardResult contains the badges newly awarded by one evaluation.
type BadgeAwardResult struct {
	// UserID is the evaluated user.
	UserID string

	// NewBadges lists the badges this call awarded. Badges another
	// concurrent evaluation won are not included.
	NewBadges []*badge.UserBadge

	// TotalXPAwarded sums the rewards of NewBadges.
	TotalXPAwarded int

	// ProcessedAt is when the evaluation completed.
	ProcessedAt time.Time
}

// HasNewBadges returns true if any badge was awarded.
func (r *BadgeAwardResult) HasNewBadges() bool {
	return len(r.NewBadges) > 0
}

// BadgeAwardFlow evaluates the catalog against a user's aggregated
// statistics and awards every badge whose threshold is met.
type BadgeAwardFlow struct {
	catalog    *badge.Catalog
	badges     badge.Repository
	events     prayer.Repository
	calculator *prayer.StreakCalculator
	publisher  shared.EventPublisher
	location   *time.Location
	log        *logger.Logger
}

// NewBadgeAwardFlow creates a new BadgeAwardFlow.
func NewBadgeAwardFlow(
	catalog *badge.Catalog,
	badges badge.Repository,
	events prayer.Repository,
	calculator *prayer.StreakCalculator,
	publisher shared.EventPublisher,
	location *time.Location,
	log *logger.Logger,
) *BadgeAwardFlow {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = logger.Default()
	}
	return &BadgeAwardFlow{
		catalog:    catalog,
		badges:     badges,
		events:     events,
		calculator: calculator,
		publisher:  publisher,
		location:   location,
		log:        log,
	}
}

// Execute runs the evaluation.
func (f *BadgeAwardFlow) Execute(ctx context.Context, input BadgeAwardInput) (*BadgeAwardResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	result := &BadgeAwardResult{UserID: input.UserID, ProcessedAt: now}

	earned, err := f.badges.ListEarned(ctx, input.UserID)
	if err != nil {
		return nil, shared.StoreError("saga", "BadgeAwardFlow.Execute", err)
	}
	earnedSet := make(map[string]bool, len(earned))
	for _, ub := range earned {
		earnedSet[ub.BadgeID] = true
	}

	stats, err := f.aggregate(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	for _, def := range f.catalog.All() {
		if earnedSet[def.ID] || !stats.Satisfies(def) {
			continue
		}
		awarded, err := f.award(ctx, input.UserID, def, now)
		if err != nil {
			return nil, err
		}
		if awarded == nil {
			// Lost the race to a concurrent evaluation.
			continue
		}
		result.NewBadges = append(result.NewBadges, awarded)
		result.TotalXPAwarded += def.XPReward

		f.log.Info("badge awarded",
			logger.UserID(input.UserID),
			logger.BadgeID(def.ID),
			logger.XPAmount(def.XPReward))
		_ = f.publisher.Publish(shared.NewBadgeEarnedEvent(
			input.UserID, def.ID, def.Name, string(def.Rarity), def.XPReward))
	}

	return result, nil
}

// aggregate builds the statistics every requirement is measured
// against.
func (f *BadgeAwardFlow) aggregate(ctx context.Context, userID string) (*badge.UserStatistics, error) {
	events, err := f.events.FetchEvents(ctx, userID, shared.TimeRange{})
	if err != nil {
		return nil, shared.StoreError("saga", "BadgeAwardFlow.aggregate", err)
	}
	exemptions, err := f.events.FetchExemptions(ctx, userID)
	if err != nil {
		return nil, shared.StoreError("saga", "BadgeAwardFlow.aggregate", err)
	}

	streak := f.calculator.Calculate(events, exemptions, f.location)
	days := f.calculator.BucketByDay(events, exemptions, f.location)
	return badge.BuildStatistics(events, days, streak.BestStreak), nil
}

// award persists the badge and its XP entry as one atomic unit. A
// uniqueness conflict means another evaluation already awarded it.
func (f *BadgeAwardFlow) award(ctx context.Context, userID string, def badge.Definition, now time.Time) (*badge.UserBadge, error) {
	ub := &badge.UserBadge{
		UserID:    userID,
		BadgeID:   def.ID,
		EarnedAt:  now,
		XPAwarded: def.XPReward,
	}
	reward := &progression.XPTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      def.XPReward,
		Source:      progression.SourceBadge,
		SourceID:    def.ID,
		Description: "badge " + def.Name,
		Timestamp:   now,
	}

	inserted, err := f.badges.InsertIfAbsent(ctx, ub, reward)
	if err != nil {
		if shared.IsConflict(err) {
			return nil, nil
		}
		return nil, shared.StoreError("saga", "BadgeAwardFlow.award", err)
	}
	if !inserted {
		return nil, nil
	}
	return ub, nil
}
