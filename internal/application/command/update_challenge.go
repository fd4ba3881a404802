package command

import (
	"context"
	"fmt"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE CHALLENGE PROGRESS COMMAND
// Moves the progress counter on an ACTIVE challenge. Progress updates never
// complete a challenge; completion is its own explicit command.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateChallengeProgressCommand contains the data for one progress update.
type UpdateChallengeProgressCommand struct {
	// ChallengeID is the instance to update.
	ChallengeID string

	// Progress is the new absolute progress value.
	Progress int
}

// Validate validates the command.
func (c UpdateChallengeProgressCommand) Validate() error {
	const op = "UpdateChallengeProgressCommand.Validate"

	if c.ChallengeID == "" {
		return shared.NewDomainError("command", op, shared.ErrEmptyValue, "challenge ID is required")
	}
	if c.Progress < 0 {
		return shared.NewDomainError("command", op, shared.ErrNegativeValue, "progress cannot be negative")
	}
	return nil
}

// UpdateChallengeProgressHandler handles the UpdateChallengeProgressCommand.
type UpdateChallengeProgressHandler struct {
	store challenge.Repository
}

// NewUpdateChallengeProgressHandler creates a new UpdateChallengeProgressHandler.
func NewUpdateChallengeProgressHandler(store challenge.Repository) *UpdateChallengeProgressHandler {
	return &UpdateChallengeProgressHandler{store: store}
}

// Handle executes the progress update.
func (h *UpdateChallengeProgressHandler) Handle(ctx context.Context, cmd UpdateChallengeProgressCommand) (*challenge.UserChallenge, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	instance, err := h.store.GetInstance(ctx, cmd.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("update_challenge_progress: load: %w", err)
	}
	if err := instance.SetProgress(cmd.Progress); err != nil {
		return nil, err
	}
	if err := h.store.UpdateInstance(ctx, instance); err != nil {
		return nil, fmt.Errorf("update_challenge_progress: persist: %w", err)
	}
	return instance, nil
}
