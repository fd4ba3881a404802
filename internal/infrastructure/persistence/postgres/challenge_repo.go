package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER CHALLENGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeRepository implements challenge.Repository for PostgreSQL.
type ChallengeRepository struct {
	conn *Connection
}

// NewChallengeRepository creates a new ChallengeRepository.
func NewChallengeRepository(conn *Connection) *ChallengeRepository {
	return &ChallengeRepository{conn: conn}
}

var _ challenge.Repository = (*ChallengeRepository)(nil)

const challengeColumns = `id, user_id, template_id, period, period_key, progress, target, xp_reward, state, expires_at`

// UpsertInstancesIfAbsent persists the generated set for one (user, period
// key) in a single transaction. Each insert relies on the (user, template,
// period, period key) uniqueness constraint with DO NOTHING, then the stored
// set is re-read inside the same transaction: whichever generation wins the
// race, both callers observe the same surviving rows.
func (r *ChallengeRepository) UpsertInstancesIfAbsent(ctx context.Context, userID string, period challenge.Period, periodKey string, instances []*challenge.UserChallenge) ([]*challenge.UserChallenge, error) {
	insert := `
		INSERT INTO user_challenges (` + challengeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT uq_user_challenges_template_period DO NOTHING
	`

	var stored []*challenge.UserChallenge
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		for _, inst := range instances {
			_, err := tx.Exec(ctx, insert,
				inst.ID,
				inst.UserID,
				inst.TemplateID,
				string(inst.Period),
				inst.PeriodKey,
				inst.Progress,
				inst.Target,
				inst.XPReward,
				string(inst.State),
				inst.ExpiresAt,
			)
			if err != nil {
				return err
			}
		}

		var err error
		stored, err = r.listInstances(ctx, tx, userID, period, periodKey)
		return err
	})
	if err != nil {
		return nil, shared.StoreError("challenge", "UpsertInstancesIfAbsent", err)
	}

	return stored, nil
}

// GetInstance fetches one challenge by ID.
func (r *ChallengeRepository) GetInstance(ctx context.Context, challengeID string) (*challenge.UserChallenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM user_challenges
		WHERE id = $1
	`

	inst, err := scanChallenge(r.conn.QueryRow(ctx, query, challengeID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("challenge", "GetInstance", shared.ErrNotFound,
				fmt.Sprintf("challenge %s not found", challengeID))
		}
		return nil, shared.StoreError("challenge", "GetInstance", err)
	}

	return inst, nil
}

// ListInstances returns the user's instances for one period key.
func (r *ChallengeRepository) ListInstances(ctx context.Context, userID string, period challenge.Period, periodKey string) ([]*challenge.UserChallenge, error) {
	instances, err := r.listInstances(ctx, r.conn, userID, period, periodKey)
	if err != nil {
		return nil, shared.StoreError("challenge", "ListInstances", err)
	}
	return instances, nil
}

// UpdateInstance persists a state or progress change.
func (r *ChallengeRepository) UpdateInstance(ctx context.Context, instance *challenge.UserChallenge) error {
	query := `
		UPDATE user_challenges
		SET progress = $2, state = $3
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, instance.ID, instance.Progress, string(instance.State))
	if err != nil {
		return shared.StoreError("challenge", "UpdateInstance", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("challenge", "UpdateInstance", shared.ErrNotFound,
			fmt.Sprintf("challenge %s not found", instance.ID))
	}

	return nil
}

// CompleteWithReward persists the completed instance and its XP reward in one
// transaction. The ledger insert relies on the (user, source, source_id)
// uniqueness constraint: when a concurrent or retried completion already
// banked the reward, the whole transaction rolls back and awarded=false is
// reported, leaving the earlier commit as the single source of truth.
func (r *ChallengeRepository) CompleteWithReward(ctx context.Context, instance *challenge.UserChallenge, reward *progression.XPTransaction) (int64, bool, error) {
	updateInstance := `
		UPDATE user_challenges
		SET progress = $2, state = $3
		WHERE id = $1
	`
	insertReward := `
		INSERT INTO xp_transactions (id, user_id, amount, source, source_id, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	sumLedger := `
		SELECT COALESCE(SUM(amount), 0)
		FROM xp_transactions
		WHERE user_id = $1
	`

	var newTotal int64
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateInstance, instance.ID, instance.Progress, string(instance.State))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.NewDomainError("challenge", "CompleteWithReward", shared.ErrNotFound,
				fmt.Sprintf("challenge %s not found", instance.ID))
		}

		var sourceID *string
		if reward.SourceID != "" {
			sourceID = &reward.SourceID
		}
		_, err = tx.Exec(ctx, insertReward,
			reward.ID,
			reward.UserID,
			reward.Amount,
			string(reward.Source),
			sourceID,
			reward.Description,
			reward.Timestamp,
		)
		if err != nil {
			return err
		}

		return tx.QueryRow(ctx, sumLedger, reward.UserID).Scan(&newTotal)
	})
	if err != nil {
		if IsUniqueViolation(err) {
			// The reward is already on the ledger, so the completion that
			// wrote it also committed the instance state.
			return 0, false, nil
		}
		if shared.IsNotFound(err) {
			return 0, false, err
		}
		return 0, false, shared.StoreError("challenge", "CompleteWithReward", err)
	}

	return newTotal, true, nil
}

// ExpireOverdue marks every ACTIVE instance whose deadline is before now as
// EXPIRED. The partial index on (expires_at) WHERE state = 'ACTIVE' keeps
// this cheap no matter how much terminal history accumulates.
func (r *ChallengeRepository) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE user_challenges
		SET state = $1
		WHERE state = $2 AND expires_at < $3
	`

	tag, err := r.conn.Exec(ctx, query, string(challenge.StateExpired), string(challenge.StateActive), now)
	if err != nil {
		return 0, shared.StoreError("challenge", "ExpireOverdue", err)
	}

	return int(tag.RowsAffected()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *ChallengeRepository) listInstances(ctx context.Context, q Querier, userID string, period challenge.Period, periodKey string) ([]*challenge.UserChallenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM user_challenges
		WHERE user_id = $1 AND period = $2 AND period_key = $3
		ORDER BY created_at ASC, id ASC
	`

	rows, err := q.Query(ctx, query, userID, string(period), periodKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*challenge.UserChallenge
	for rows.Next() {
		inst, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return instances, nil
}

func scanChallenge(row pgx.Row) (*challenge.UserChallenge, error) {
	var (
		inst   challenge.UserChallenge
		period string
		state  string
	)

	err := row.Scan(
		&inst.ID,
		&inst.UserID,
		&inst.TemplateID,
		&period,
		&inst.PeriodKey,
		&inst.Progress,
		&inst.Target,
		&inst.XPReward,
		&state,
		&inst.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	inst.Period = challenge.Period(period)
	inst.State = challenge.State(state)
	return &inst, nil
}
