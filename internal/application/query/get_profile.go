package query

import (
	"context"
	"fmt"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// Derives the gamification profile from the ledger total. Nothing here is
// stored: level, rank and benefits all fall out of the XP sum.
// ══════════════════════════════════════════════════════════════════════════════

// GetProfileQuery contains the query parameters.
type GetProfileQuery struct {
	UserID string
}

// GetProfileHandler handles the GetProfileQuery.
type GetProfileHandler struct {
	ledger progression.Repository
}

// NewGetProfileHandler creates a new GetProfileHandler.
func NewGetProfileHandler(ledger progression.Repository) *GetProfileHandler {
	return &GetProfileHandler{ledger: ledger}
}

// Handle executes the query.
func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (*progression.GamificationProfile, error) {
	if q.UserID == "" {
		return nil, shared.NewDomainError("query", "GetProfile",
			shared.ErrEmptyValue, "user ID is required")
	}

	total, err := h.ledger.TotalXP(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_profile: total XP: %w", err)
	}
	profile, err := progression.ProfileFromTotalXP(total)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
