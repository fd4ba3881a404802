package badge

import (
	"context"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
)

// Repository is the earned-badge store.
type Repository interface {
	// ListEarned returns every badge the user has earned.
	ListEarned(ctx context.Context, userID string) ([]*UserBadge, error)

	// InsertIfAbsent awards a badge as one atomic unit: the UserBadge
	// row and the XP ledger entry are persisted together or not at
	// all. The insert is guarded by the (user, badge) uniqueness
	// constraint; when the row already exists the method reports
	// inserted=false without touching the ledger, so two concurrent
	// evaluations produce exactly one award.
	InsertIfAbsent(ctx context.Context, earned *UserBadge, reward *progression.XPTransaction) (inserted bool, err error)
}
