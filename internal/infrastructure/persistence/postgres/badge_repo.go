package postgres

import (
	"context"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/badge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// EARNED BADGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRepository implements badge.Repository for PostgreSQL.
type BadgeRepository struct {
	conn *Connection
}

// NewBadgeRepository creates a new BadgeRepository.
func NewBadgeRepository(conn *Connection) *BadgeRepository {
	return &BadgeRepository{conn: conn}
}

var _ badge.Repository = (*BadgeRepository)(nil)

// ListEarned returns every badge the user has earned.
func (r *BadgeRepository) ListEarned(ctx context.Context, userID string) ([]*badge.UserBadge, error) {
	query := `
		SELECT user_id, badge_id, earned_at, xp_awarded
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at ASC
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, shared.StoreError("badge", "ListEarned", err)
	}
	defer rows.Close()

	var earned []*badge.UserBadge
	for rows.Next() {
		ub := &badge.UserBadge{}
		if err := rows.Scan(&ub.UserID, &ub.BadgeID, &ub.EarnedAt, &ub.XPAwarded); err != nil {
			return nil, shared.StoreError("badge", "ListEarned", err)
		}
		earned = append(earned, ub)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("badge", "ListEarned", err)
	}

	return earned, nil
}

// InsertIfAbsent awards a badge and its XP reward in one transaction. The
// badge row insert uses ON CONFLICT DO NOTHING against the (user, badge)
// primary key: when another evaluation got there first, the transaction
// writes nothing and the ledger stays untouched.
func (r *BadgeRepository) InsertIfAbsent(ctx context.Context, earned *badge.UserBadge, reward *progression.XPTransaction) (bool, error) {
	insertBadge := `
		INSERT INTO user_badges (user_id, badge_id, earned_at, xp_awarded)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`
	insertReward := `
		INSERT INTO xp_transactions (id, user_id, amount, source, source_id, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	inserted := false
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertBadge,
			earned.UserID,
			earned.BadgeID,
			earned.EarnedAt,
			earned.XPAwarded,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, insertReward,
			reward.ID,
			reward.UserID,
			reward.Amount,
			string(reward.Source),
			reward.SourceID,
			reward.Description,
			reward.Timestamp,
		)
		if err != nil {
			return err
		}

		inserted = true
		return nil
	})
	if err != nil {
		if IsUniqueViolation(err) {
			// The ledger already carries a reward for this badge; the
			// award as a whole counts as done.
			return false, nil
		}
		return false, shared.StoreError("badge", "InsertIfAbsent", err)
	}

	return inserted, nil
}
