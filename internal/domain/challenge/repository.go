package challenge

import (
	"context"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
)

// Repository is the user-challenge store.
type Repository interface {
	// UpsertInstancesIfAbsent persists the generated instances for one
	// (user, period key) unless instances already exist for it, in
	// which case the stored ones are returned unchanged. Generation is
	// idempotent per period: two concurrent calls agree on one set.
	UpsertInstancesIfAbsent(ctx context.Context, userID string, period Period, periodKey string, instances []*UserChallenge) ([]*UserChallenge, error)

	// GetInstance fetches one challenge by ID. Unknown IDs are a
	// NotFoundError.
	GetInstance(ctx context.Context, challengeID string) (*UserChallenge, error)

	// ListInstances returns the user's instances for one period key.
	ListInstances(ctx context.Context, userID string, period Period, periodKey string) ([]*UserChallenge, error)

	// UpdateInstance persists a state or progress change.
	UpdateInstance(ctx context.Context, instance *UserChallenge) error

	// CompleteWithReward banks a completion as one atomic unit: the
	// instance's state change and the XP ledger entry are persisted
	// together or not at all. The ledger insert is guarded by the
	// (user, source, source_id) uniqueness constraint; when the reward
	// was already banked the method reports awarded=false without
	// touching the instance, so a retried completion never double-pays
	// and a failed one never strands a completed instance without its
	// reward. On success newTotal is the user's lifetime XP including
	// the reward.
	CompleteWithReward(ctx context.Context, instance *UserChallenge, reward *progression.XPTransaction) (newTotal int64, awarded bool, err error)

	// ExpireOverdue marks every ACTIVE instance whose deadline is
	// before now as EXPIRED, returning how many were transitioned.
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}
