package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXEMPTION COMMANDS
// Opens and closes exemption windows, the date ranges during which missed
// prayers do not break a streak (travel, illness and similar).
// ══════════════════════════════════════════════════════════════════════════════

// AddExemptionCommand opens a window. EndDate may be nil for an
// open-ended window covering every day from StartDate on.
type AddExemptionCommand struct {
	UserID    string
	StartDate time.Time
	EndDate   *time.Time
	Reason    string
}

// Validate validates the command.
func (c AddExemptionCommand) Validate() error {
	const op = "AddExemptionCommand.Validate"

	if c.UserID == "" {
		return shared.NewDomainError("command", op, shared.ErrEmptyValue, "user ID is required")
	}
	if c.StartDate.IsZero() {
		return shared.NewDomainError("command", op, shared.ErrEmptyValue, "start date is required")
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return shared.NewDomainError("command", op, shared.ErrValidation,
			"end date cannot precede start date")
	}
	return nil
}

// AddExemptionHandler handles the AddExemptionCommand.
type AddExemptionHandler struct {
	store     prayer.Repository
	publisher shared.EventPublisher
}

// NewAddExemptionHandler creates a new AddExemptionHandler.
func NewAddExemptionHandler(store prayer.Repository, publisher shared.EventPublisher) *AddExemptionHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	return &AddExemptionHandler{store: store, publisher: publisher}
}

// Handle opens the window.
func (h *AddExemptionHandler) Handle(ctx context.Context, cmd AddExemptionCommand) (*prayer.ExemptionWindow, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	window := &prayer.ExemptionWindow{
		ID:        uuid.NewString(),
		UserID:    cmd.UserID,
		StartDate: cmd.StartDate,
		EndDate:   cmd.EndDate,
		Reason:    cmd.Reason,
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if err := h.store.AddExemption(ctx, window); err != nil {
		return nil, fmt.Errorf("add_exemption: persist: %w", err)
	}
	return window, nil
}

// CloseExemptionCommand closes an open-ended window at the given date.
type CloseExemptionCommand struct {
	WindowID string
	EndDate  time.Time
}

// Validate validates the command.
func (c CloseExemptionCommand) Validate() error {
	const op = "CloseExemptionCommand.Validate"

	if c.WindowID == "" {
		return shared.NewDomainError("command", op, shared.ErrEmptyValue, "window ID is required")
	}
	if c.EndDate.IsZero() {
		return shared.NewDomainError("command", op, shared.ErrEmptyValue, "end date is required")
	}
	return nil
}

// CloseExemptionHandler handles the CloseExemptionCommand.
type CloseExemptionHandler struct {
	store prayer.Repository
}

// NewCloseExemptionHandler creates a new CloseExemptionHandler.
func NewCloseExemptionHandler(store prayer.Repository) *CloseExemptionHandler {
	return &CloseExemptionHandler{store: store}
}

// Handle closes the window.
func (h *CloseExemptionHandler) Handle(ctx context.Context, cmd CloseExemptionCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := h.store.CloseExemption(ctx, cmd.WindowID, cmd.EndDate); err != nil {
		return fmt.Errorf("close_exemption: %w", err)
	}
	return nil
}
