// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CONSISTENCY QUERY
// Computes the user's streak and completion statistics from the event log.
// The result is derived and cacheable; the cache is a read-through layer and
// never the source of truth.
// ══════════════════════════════════════════════════════════════════════════════

// ConsistencyCache stores derived stats with a TTL. A miss is reported
// via found=false, not an error.
type ConsistencyCache interface {
	Get(ctx context.Context, userID string) (stats *prayer.ConsistencyStats, found bool, err error)
	Set(ctx context.Context, userID string, stats *prayer.ConsistencyStats, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}

// GetConsistencyQuery contains the query parameters.
type GetConsistencyQuery struct {
	// UserID is the user to compute for.
	UserID string

	// Fresh skips the cache and forces a recomputation.
	Fresh bool
}

// GetConsistencyHandler handles the GetConsistencyQuery.
type GetConsistencyHandler struct {
	events     prayer.Repository
	calculator *prayer.StreakCalculator
	cache      ConsistencyCache
	cacheTTL   time.Duration
	location   *time.Location
	log        *logger.Logger
}

// NewGetConsistencyHandler creates a new GetConsistencyHandler. The
// cache may be nil, in which case every query recomputes.
func NewGetConsistencyHandler(
	events prayer.Repository,
	calculator *prayer.StreakCalculator,
	cache ConsistencyCache,
	cacheTTL time.Duration,
	location *time.Location,
	log *logger.Logger,
) *GetConsistencyHandler {
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = logger.Default()
	}
	return &GetConsistencyHandler{
		events:     events,
		calculator: calculator,
		cache:      cache,
		cacheTTL:   cacheTTL,
		location:   location,
		log:        log,
	}
}

// Handle executes the query.
func (h *GetConsistencyHandler) Handle(ctx context.Context, q GetConsistencyQuery) (*prayer.ConsistencyStats, error) {
	if q.UserID == "" {
		return nil, shared.NewDomainError("query", "GetConsistency",
			shared.ErrEmptyValue, "user ID is required")
	}

	if h.cache != nil && !q.Fresh {
		stats, found, err := h.cache.Get(ctx, q.UserID)
		if err != nil {
			// Cache trouble degrades to a recompute.
			h.log.Warn("consistency cache read failed",
				logger.UserID(q.UserID), logger.Err(err))
		} else if found {
			return stats, nil
		}
	}

	events, err := h.events.FetchEvents(ctx, q.UserID, shared.TimeRange{})
	if err != nil {
		return nil, fmt.Errorf("get_consistency: fetch events: %w", err)
	}
	exemptions, err := h.events.FetchExemptions(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_consistency: fetch exemptions: %w", err)
	}

	stats := h.calculator.Stats(events, exemptions, h.location, time.Now().UTC())

	if h.cache != nil {
		if err := h.cache.Set(ctx, q.UserID, &stats, h.cacheTTL); err != nil {
			h.log.Warn("consistency cache write failed",
				logger.UserID(q.UserID), logger.Err(err))
		}
	}
	return &stats, nil
}
