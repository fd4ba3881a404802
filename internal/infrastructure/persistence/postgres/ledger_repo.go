package postgres

import (
	"context"
	"fmt"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP LEDGER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements progression.Repository for PostgreSQL.
// Idempotency is enforced by the partial unique index on
// (user_id, source, source_id); duplicate appends surface as conflicts
// without a read-before-write race.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

var _ progression.Repository = (*LedgerRepository)(nil)

// AppendTransaction persists a ledger entry and returns the user's new total
// in the same transaction.
func (r *LedgerRepository) AppendTransaction(ctx context.Context, entry *progression.XPTransaction) (int64, error) {
	if err := entry.Validate(); err != nil {
		return 0, err
	}

	insert := `
		INSERT INTO xp_transactions (id, user_id, amount, source, source_id, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	total := `
		SELECT COALESCE(SUM(amount), 0)
		FROM xp_transactions
		WHERE user_id = $1
	`

	var sourceID *string
	if entry.SourceID != "" {
		sourceID = &entry.SourceID
	}

	var newTotal int64
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insert,
			entry.ID,
			entry.UserID,
			entry.Amount,
			string(entry.Source),
			sourceID,
			entry.Description,
			entry.Timestamp,
		)
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, total, entry.UserID).Scan(&newTotal)
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, shared.NewDomainError("progression", "AppendTransaction", shared.ErrConflict,
				fmt.Sprintf("ledger entry for %s/%s already exists", entry.Source, entry.SourceID))
		}
		return 0, shared.StoreError("progression", "AppendTransaction", err)
	}

	return newTotal, nil
}

// TotalXP returns the sum of the user's ledger.
func (r *LedgerRepository) TotalXP(ctx context.Context, userID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM xp_transactions
		WHERE user_id = $1
	`

	var total int64
	if err := r.conn.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, shared.StoreError("progression", "TotalXP", err)
	}

	return total, nil
}

// ListTransactions returns the user's ledger entries newest first.
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]*progression.XPTransaction, error) {
	query := `
		SELECT id, user_id, amount, source, source_id, description, occurred_at
		FROM xp_transactions
		WHERE user_id = $1
		ORDER BY occurred_at DESC, id DESC
	`
	args := []any{userID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.StoreError("progression", "ListTransactions", err)
	}
	defer rows.Close()

	var entries []*progression.XPTransaction
	for rows.Next() {
		entry, err := scanTransaction(rows)
		if err != nil {
			return nil, shared.StoreError("progression", "ListTransactions", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("progression", "ListTransactions", err)
	}

	return entries, nil
}

func scanTransaction(row pgx.Row) (*progression.XPTransaction, error) {
	var (
		entry    progression.XPTransaction
		source   string
		sourceID *string
	)

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Amount,
		&source,
		&sourceID,
		&entry.Description,
		&entry.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	entry.Source = progression.XPSource(source)
	if sourceID != nil {
		entry.SourceID = *sourceID
	}
	return &entry, nil
}
