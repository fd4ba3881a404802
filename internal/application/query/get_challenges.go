package query

import (
	"context"
	"fmt"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CHALLENGES QUERY
// Lists a user's challenge instances for the current (or a specific) period
// instance. Reads never generate; generation is a command. Instances past
// their deadline are reported as EXPIRED even before the background sweep
// has made the transition durable.
// ══════════════════════════════════════════════════════════════════════════════

// GetChallengesQuery contains the query parameters.
type GetChallengesQuery struct {
	// UserID is the user to list for.
	UserID string

	// Period is the cadence to list.
	Period challenge.Period

	// PeriodKey pins a specific instance; empty means the one
	// containing Now.
	PeriodKey string

	// Now anchors the current period (defaults to the current time).
	Now time.Time
}

// GetChallengesHandler handles the GetChallengesQuery.
type GetChallengesHandler struct {
	store    challenge.Repository
	location *time.Location
}

// NewGetChallengesHandler creates a new GetChallengesHandler.
func NewGetChallengesHandler(store challenge.Repository, location *time.Location) *GetChallengesHandler {
	if location == nil {
		location = time.UTC
	}
	return &GetChallengesHandler{store: store, location: location}
}

// Handle executes the query.
func (h *GetChallengesHandler) Handle(ctx context.Context, q GetChallengesQuery) ([]*challenge.UserChallenge, error) {
	if q.UserID == "" {
		return nil, shared.NewDomainError("query", "GetChallenges",
			shared.ErrEmptyValue, "user ID is required")
	}
	if !q.Period.IsValid() {
		return nil, shared.NewDomainError("query", "GetChallenges",
			shared.ErrValidation, fmt.Sprintf("unknown period %q", q.Period))
	}

	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	key := q.PeriodKey
	if key == "" {
		key = q.Period.Key(now, h.location)
	}

	instances, err := h.store.ListInstances(ctx, q.UserID, q.Period, key)
	if err != nil {
		return nil, fmt.Errorf("get_challenges: list instances: %w", err)
	}

	// Lazy expiry: overdue instances read as EXPIRED immediately; the
	// background sweep persists the transition later.
	for _, inst := range instances {
		inst.Expire(now)
	}
	return instances, nil
}
