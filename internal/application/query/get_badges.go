package query

import (
	"context"
	"fmt"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/badge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET BADGES QUERY
// Lists the catalog with the user's progress toward each badge and marks the
// ones already earned.
// ══════════════════════════════════════════════════════════════════════════════

// GetBadgesQuery contains the query parameters.
type GetBadgesQuery struct {
	UserID string
}

// BadgeView pairs a catalog definition with the user's position.
type BadgeView struct {
	Definition badge.Definition `json:"definition"`
	Progress   badge.Progress   `json:"progress"`
}

// GetBadgesHandler handles the GetBadgesQuery.
type GetBadgesHandler struct {
	catalog    *badge.Catalog
	badges     badge.Repository
	events     prayer.Repository
	calculator *prayer.StreakCalculator
	location   *time.Location
}

// NewGetBadgesHandler creates a new GetBadgesHandler.
func NewGetBadgesHandler(
	catalog *badge.Catalog,
	badges badge.Repository,
	events prayer.Repository,
	calculator *prayer.StreakCalculator,
	location *time.Location,
) *GetBadgesHandler {
	if location == nil {
		location = time.UTC
	}
	return &GetBadgesHandler{
		catalog:    catalog,
		badges:     badges,
		events:     events,
		calculator: calculator,
		location:   location,
	}
}

// Handle executes the query.
func (h *GetBadgesHandler) Handle(ctx context.Context, q GetBadgesQuery) ([]BadgeView, error) {
	if q.UserID == "" {
		return nil, shared.NewDomainError("query", "GetBadges",
			shared.ErrEmptyValue, "user ID is required")
	}

	earned, err := h.badges.ListEarned(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_badges: list earned: %w", err)
	}
	earnedSet := make(map[string]bool, len(earned))
	for _, ub := range earned {
		earnedSet[ub.BadgeID] = true
	}

	events, err := h.events.FetchEvents(ctx, q.UserID, shared.TimeRange{})
	if err != nil {
		return nil, fmt.Errorf("get_badges: fetch events: %w", err)
	}
	exemptions, err := h.events.FetchExemptions(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_badges: fetch exemptions: %w", err)
	}

	streak := h.calculator.Calculate(events, exemptions, h.location)
	days := h.calculator.BucketByDay(events, exemptions, h.location)
	stats := badge.BuildStatistics(events, days, streak.BestStreak)

	views := make([]BadgeView, 0, h.catalog.Len())
	for _, def := range h.catalog.All() {
		p := stats.ProgressFor(def)
		if earnedSet[def.ID] {
			p.Earned = true
			p.Current = p.Target
		}
		views = append(views, BadgeView{Definition: def, Progress: p})
	}
	return views, nil
}
