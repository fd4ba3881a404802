package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE CHALLENGES COMMAND
// Creates the period's challenge instances for a user from the template
// catalog. Generation is idempotent per (user, period key): a second call
// within the same day or ISO week returns the already-stored set.
// ══════════════════════════════════════════════════════════════════════════════

// GenerateChallengesCommand contains the data for one generation.
type GenerateChallengesCommand struct {
	// UserID is the user to generate for.
	UserID string

	// Period is the cadence, daily or weekly.
	Period challenge.Period

	// Now anchors the period instance (defaults to the current time).
	Now time.Time
}

// Validate validates the command.
func (c GenerateChallengesCommand) Validate() error {
	const op = "GenerateChallengesCommand.Validate"

	if c.UserID == "" {
		return shared.NewDomainError("command", op, shared.ErrEmptyValue, "user ID is required")
	}
	if !c.Period.IsValid() {
		return shared.NewDomainError("command", op, shared.ErrValidation,
			fmt.Sprintf("unknown period %q", c.Period))
	}
	return nil
}

// GenerateChallengesResult contains the generated (or pre-existing)
// instances.
type GenerateChallengesResult struct {
	PeriodKey  string
	Challenges []*challenge.UserChallenge

	// Generated is false when instances already existed for the key.
	Generated bool
}

// GenerateChallengesHandler handles the GenerateChallengesCommand.
type GenerateChallengesHandler struct {
	catalog   *challenge.Catalog
	store     challenge.Repository
	strategy  challenge.SelectionStrategy
	publisher shared.EventPublisher
	location  *time.Location
}

// NewGenerateChallengesHandler creates a new GenerateChallengesHandler.
func NewGenerateChallengesHandler(
	catalog *challenge.Catalog,
	store challenge.Repository,
	strategy challenge.SelectionStrategy,
	publisher shared.EventPublisher,
	location *time.Location,
) *GenerateChallengesHandler {
	if strategy == nil {
		strategy = challenge.NewSeededShuffleStrategy()
	}
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if location == nil {
		location = time.UTC
	}
	return &GenerateChallengesHandler{
		catalog:   catalog,
		store:     store,
		strategy:  strategy,
		publisher: publisher,
		location:  location,
	}
}

// Handle executes the generation.
func (h *GenerateChallengesHandler) Handle(ctx context.Context, cmd GenerateChallengesCommand) (*GenerateChallengesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	periodKey := cmd.Period.Key(now, h.location)
	expiresAt := cmd.Period.End(now, h.location)

	existing, err := h.store.ListInstances(ctx, cmd.UserID, cmd.Period, periodKey)
	if err != nil {
		return nil, fmt.Errorf("generate_challenges: list instances: %w", err)
	}
	if len(existing) > 0 {
		return &GenerateChallengesResult{PeriodKey: periodKey, Challenges: existing}, nil
	}

	picks := h.strategy.Select(
		h.catalog.ForPeriod(cmd.Period),
		challenge.GenerationCount(cmd.Period),
		cmd.UserID,
		periodKey,
	)

	instances := make([]*challenge.UserChallenge, 0, len(picks))
	for _, tpl := range picks {
		instances = append(instances, &challenge.UserChallenge{
			ID:         uuid.NewString(),
			UserID:     cmd.UserID,
			TemplateID: tpl.ID,
			Period:     cmd.Period,
			PeriodKey:  periodKey,
			Progress:   0,
			Target:     tpl.Target,
			XPReward:   tpl.XPReward,
			State:      challenge.StateActive,
			ExpiresAt:  expiresAt,
		})
	}

	// The store resolves the generation race: whichever call persists
	// first wins and both callers see the same set.
	stored, err := h.store.UpsertInstancesIfAbsent(ctx, cmd.UserID, cmd.Period, periodKey, instances)
	if err != nil {
		return nil, fmt.Errorf("generate_challenges: upsert instances: %w", err)
	}

	generated := len(stored) > 0 && len(stored) == len(instances) && stored[0].ID == instances[0].ID
	if generated {
		templateIDs := make([]string, 0, len(stored))
		for _, c := range stored {
			templateIDs = append(templateIDs, c.TemplateID)
		}
		_ = h.publisher.Publish(shared.NewChallengesGeneratedEvent(
			cmd.UserID, cmd.Period.String(), periodKey, templateIDs))
	}

	return &GenerateChallengesResult{
		PeriodKey:  periodKey,
		Challenges: stored,
		Generated:  generated,
	}, nil
}
