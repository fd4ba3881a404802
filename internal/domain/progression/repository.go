package progression

import "context"

// Repository is the append-only XP ledger store.
type Repository interface {
	// AppendTransaction persists a ledger entry and returns the user's
	// new total in the same atomic unit. When the entry carries a
	// non-empty SourceID and an entry with the same (user, source,
	// source ID) already exists, the append is rejected with a
	// ConflictError and the stored total is unchanged.
	AppendTransaction(ctx context.Context, tx *XPTransaction) (newTotal int64, err error)

	// TotalXP returns the sum of the user's ledger. A user with no
	// entries has a total of 0, not a NotFoundError.
	TotalXP(ctx context.Context, userID string) (int64, error)

	// ListTransactions returns the user's ledger entries ordered from
	// newest to oldest, at most limit entries (0 means no limit).
	ListTransactions(ctx context.Context, userID string, limit int) ([]*XPTransaction, error)
}
