package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE CHALLENGE COMMAND
// Transitions an ACTIVE challenge to COMPLETED and awards its XP. State change
// and ledger entry are persisted as one atomic unit through the repository,
// guarded by the ledger's source-ID uniqueness: a retried or concurrent
// completion of the same instance is a no-op and never double-pays.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteChallengeCommand contains the data for one completion.
type CompleteChallengeCommand struct {
	// ChallengeID is the instance to complete.
	ChallengeID string

	// Now is the completion instant (defaults to the current time).
	Now time.Time
}

// Validate validates the command.
func (c CompleteChallengeCommand) Validate() error {
	if c.ChallengeID == "" {
		return shared.NewDomainError("command", "CompleteChallengeCommand.Validate",
			shared.ErrEmptyValue, "challenge ID is required")
	}
	return nil
}

// CompleteChallengeResult contains the outcome of a completion.
type CompleteChallengeResult struct {
	// AlreadyCompleted is true when the instance was COMPLETED before
	// this call; no XP was awarded by it.
	AlreadyCompleted bool

	// XPAwarded is the reward applied by this call.
	XPAwarded int

	// LevelUp is set when the reward crossed a level threshold.
	LevelUp *progression.LevelUpResult

	// Challenge is the instance after the transition.
	Challenge *challenge.UserChallenge
}

// CompleteChallengeHandler handles the CompleteChallengeCommand.
type CompleteChallengeHandler struct {
	store     challenge.Repository
	publisher shared.EventPublisher
}

// NewCompleteChallengeHandler creates a new CompleteChallengeHandler.
func NewCompleteChallengeHandler(
	store challenge.Repository,
	publisher shared.EventPublisher,
) *CompleteChallengeHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	return &CompleteChallengeHandler{store: store, publisher: publisher}
}

// Handle executes the completion.
func (h *CompleteChallengeHandler) Handle(ctx context.Context, cmd CompleteChallengeCommand) (*CompleteChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	instance, err := h.store.GetInstance(ctx, cmd.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("complete_challenge: load: %w", err)
	}

	alreadyDone, err := instance.Complete(now)
	if err != nil {
		return nil, err
	}
	if alreadyDone {
		return &CompleteChallengeResult{AlreadyCompleted: true, Challenge: instance}, nil
	}

	reward := &progression.XPTransaction{
		ID:          uuid.NewString(),
		UserID:      instance.UserID,
		Amount:      instance.XPReward,
		Source:      progression.SourceChallenge,
		SourceID:    instance.ID,
		Description: "challenge " + instance.TemplateID,
		Timestamp:   now,
	}

	newTotal, awarded, err := h.store.CompleteWithReward(ctx, instance, reward)
	if err != nil {
		return nil, fmt.Errorf("complete_challenge: persist: %w", err)
	}
	if !awarded {
		// A concurrent or retried completion already banked the reward,
		// along with the COMPLETED state it pays for.
		return &CompleteChallengeResult{AlreadyCompleted: true, Challenge: instance}, nil
	}

	result := &CompleteChallengeResult{Challenge: instance, XPAwarded: instance.XPReward}

	levelUp, err := progression.ResolveLevelUp(newTotal-int64(instance.XPReward), newTotal)
	if err != nil {
		return nil, err
	}
	result.LevelUp = levelUp

	_ = h.publisher.Publish(shared.NewXPAwardedEvent(
		instance.UserID, instance.XPReward, progression.SourceChallenge.String(), instance.ID, int(newTotal)))
	if levelUp != nil {
		_ = h.publisher.Publish(shared.NewLevelUpEvent(
			instance.UserID, levelUp.PreviousLevel, levelUp.NewLevel, levelUp.NewRank, levelUp.UnlockedBenefits))
	}
	_ = h.publisher.Publish(shared.NewChallengeCompletedEvent(
		instance.UserID, instance.ID, instance.TemplateID, instance.Period.String(), result.XPAwarded))

	return result, nil
}
