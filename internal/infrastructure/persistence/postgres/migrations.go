package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			insertQuery := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}
	return nil
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_prayer_log",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_progression",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_challenges",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS completion_events (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	prayer         TEXT NOT NULL,
	scheduled_at   TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ,
	completed      BOOLEAN NOT NULL DEFAULT FALSE,
	has_reflection BOOLEAN NOT NULL DEFAULT FALSE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_completion_events_user_scheduled
	ON completion_events (user_id, scheduled_at);

CREATE TABLE IF NOT EXISTS exemption_windows (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date   TIMESTAMPTZ,
	reason     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_exemption_windows_user
	ON exemption_windows (user_id);
`

const migration001Down = `
DROP TABLE IF EXISTS exemption_windows;
DROP TABLE IF EXISTS completion_events;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS xp_transactions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	amount      INTEGER NOT NULL,
	source      TEXT NOT NULL,
	source_id   TEXT,
	description TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_xp_transactions_user
	ON xp_transactions (user_id, occurred_at DESC);

-- One ledger entry per originating object. NULL source IDs are exempt,
-- so plain awards can repeat.
CREATE UNIQUE INDEX IF NOT EXISTS uq_xp_transactions_source
	ON xp_transactions (user_id, source, source_id)
	WHERE source_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS user_badges (
	user_id    TEXT NOT NULL,
	badge_id   TEXT NOT NULL,
	earned_at  TIMESTAMPTZ NOT NULL,
	xp_awarded INTEGER NOT NULL,
	PRIMARY KEY (user_id, badge_id)
);
`

const migration002Down = `
DROP TABLE IF EXISTS user_badges;
DROP TABLE IF EXISTS xp_transactions;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS user_challenges (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	template_id TEXT NOT NULL,
	period      TEXT NOT NULL,
	period_key  TEXT NOT NULL,
	progress    INTEGER NOT NULL DEFAULT 0,
	target      INTEGER NOT NULL,
	xp_reward   INTEGER NOT NULL,
	state       TEXT NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT uq_user_challenges_template_period
		UNIQUE (user_id, template_id, period, period_key)
);

CREATE INDEX IF NOT EXISTS idx_user_challenges_user_period
	ON user_challenges (user_id, period, period_key);

CREATE INDEX IF NOT EXISTS idx_user_challenges_active_expiry
	ON user_challenges (expires_at)
	WHERE state = 'ACTIVE';
`

const migration003Down = `
DROP TABLE IF EXISTS user_challenges;
`
