// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD XP COMMAND
// Appends one entry to the experience ledger and reports a level-up when the
// new total crosses a threshold. Prayer and milestone rewards funnel through
// this handler; badge and challenge rewards write their ledger entries inside
// the same transaction as their state change, so the ledger stays the single
// source of truth either way.
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPCommand contains the data for one ledger append.
type AwardXPCommand struct {
	// UserID is the user receiving the XP.
	UserID string

	// Amount is the XP delta. Negative only for corrections.
	Amount int

	// Source identifies the activity kind producing the entry.
	Source progression.XPSource

	// SourceID identifies the originating object. When set, appends
	// with the same (user, source, source ID) are applied only once.
	SourceID string

	// Description is the human-readable reason. Required for
	// corrections.
	Description string

	// Timestamp is when the XP was earned (defaults to now if zero).
	Timestamp time.Time
}

// AwardXPResult contains the outcome of a ledger append.
type AwardXPResult struct {
	// Applied is false when an entry with the same source ID already
	// existed and the append was skipped.
	Applied bool

	// NewTotal is the user's ledger total after the append.
	NewTotal int64

	// LevelUp is set only when the append strictly increased the
	// user's level.
	LevelUp *progression.LevelUpResult
}

// AwardXPHandler handles the AwardXPCommand.
type AwardXPHandler struct {
	ledger    progression.Repository
	publisher shared.EventPublisher
}

// NewAwardXPHandler creates a new AwardXPHandler.
func NewAwardXPHandler(ledger progression.Repository, publisher shared.EventPublisher) *AwardXPHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	return &AwardXPHandler{ledger: ledger, publisher: publisher}
}

// Handle executes the award.
func (h *AwardXPHandler) Handle(ctx context.Context, cmd AwardXPCommand) (*AwardXPResult, error) {
	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	tx := &progression.XPTransaction{
		ID:          uuid.NewString(),
		UserID:      cmd.UserID,
		Amount:      cmd.Amount,
		Source:      cmd.Source,
		SourceID:    cmd.SourceID,
		Description: cmd.Description,
		Timestamp:   timestamp,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	newTotal, err := h.ledger.AppendTransaction(ctx, tx)
	if err != nil {
		if shared.IsConflict(err) {
			// The same source already produced an entry; the award has
			// happened and the outcome is the stored state.
			total, totalErr := h.ledger.TotalXP(ctx, cmd.UserID)
			if totalErr != nil {
				return nil, totalErr
			}
			return &AwardXPResult{Applied: false, NewTotal: total}, nil
		}
		return nil, fmt.Errorf("award_xp: %w", err)
	}

	result := &AwardXPResult{Applied: true, NewTotal: newTotal}

	levelUp, err := progression.ResolveLevelUp(newTotal-int64(cmd.Amount), newTotal)
	if err != nil {
		return nil, err
	}
	result.LevelUp = levelUp

	_ = h.publisher.Publish(shared.NewXPAwardedEvent(
		cmd.UserID, cmd.Amount, cmd.Source.String(), cmd.SourceID, int(newTotal)))
	if levelUp != nil {
		_ = h.publisher.Publish(shared.NewLevelUpEvent(
			cmd.UserID, levelUp.PreviousLevel, levelUp.NewLevel, levelUp.NewRank, levelUp.UnlockedBenefits))
	}

	return result, nil
}
