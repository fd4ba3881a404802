package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRAYER LOG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EventRepository implements prayer.Repository for PostgreSQL.
type EventRepository struct {
	conn *Connection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(conn *Connection) *EventRepository {
	return &EventRepository{conn: conn}
}

var _ prayer.Repository = (*EventRepository)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Completion Events
// ─────────────────────────────────────────────────────────────────────────────

// FetchEvents returns all completion events for a user within the time range,
// ordered by scheduled time ascending. A zero range returns the whole log.
func (r *EventRepository) FetchEvents(ctx context.Context, userID string, rng shared.TimeRange) ([]*prayer.CompletionEvent, error) {
	query := `
		SELECT id, user_id, prayer, scheduled_at, completed_at, completed, has_reflection
		FROM completion_events
		WHERE user_id = $1
	`
	args := []any{userID}

	if !rng.IsZero() {
		query += ` AND scheduled_at >= $2 AND scheduled_at <= $3`
		args = append(args, rng.From, rng.To)
	}
	query += ` ORDER BY scheduled_at ASC`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.StoreError("prayer", "FetchEvents", err)
	}
	defer rows.Close()

	var events []*prayer.CompletionEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, shared.StoreError("prayer", "FetchEvents", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("prayer", "FetchEvents", err)
	}

	return events, nil
}

// GetEvent returns a single event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*prayer.CompletionEvent, error) {
	query := `
		SELECT id, user_id, prayer, scheduled_at, completed_at, completed, has_reflection
		FROM completion_events
		WHERE id = $1
	`

	event, err := scanEvent(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("prayer", "GetEvent", shared.ErrNotFound,
				fmt.Sprintf("event %s not found", id))
		}
		return nil, shared.StoreError("prayer", "GetEvent", err)
	}

	return event, nil
}

// InsertEvent appends a new completion event to the log.
func (r *EventRepository) InsertEvent(ctx context.Context, event *prayer.CompletionEvent) error {
	query := `
		INSERT INTO completion_events (id, user_id, prayer, scheduled_at, completed_at, completed, has_reflection)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		event.ID,
		event.UserID,
		string(event.Prayer),
		event.ScheduledAt,
		event.CompletedAt,
		event.Completed,
		event.HasReflection,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("prayer", "InsertEvent", shared.ErrConflict,
				fmt.Sprintf("event %s already exists", event.ID))
		}
		return shared.StoreError("prayer", "InsertEvent", err)
	}

	return nil
}

// UpdateEvent persists the unset-to-set transitions of an event. Everything
// except the completion fields is immutable, so only those columns move.
func (r *EventRepository) UpdateEvent(ctx context.Context, event *prayer.CompletionEvent) error {
	query := `
		UPDATE completion_events
		SET completed = $2, completed_at = $3, has_reflection = $4
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		event.ID,
		event.Completed,
		event.CompletedAt,
		event.HasReflection,
	)
	if err != nil {
		return shared.StoreError("prayer", "UpdateEvent", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("prayer", "UpdateEvent", shared.ErrNotFound,
			fmt.Sprintf("event %s not found", event.ID))
	}

	return nil
}

// ActiveUserIDs returns the users with at least one event scheduled since
// the given time. Feeds the periodic stats refresh.
func (r *EventRepository) ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM completion_events
		WHERE scheduled_at >= $1
	`

	rows, err := r.conn.Query(ctx, query, since)
	if err != nil {
		return nil, shared.StoreError("prayer", "ActiveUserIDs", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, shared.StoreError("prayer", "ActiveUserIDs", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("prayer", "ActiveUserIDs", err)
	}

	return userIDs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Exemption Windows
// ─────────────────────────────────────────────────────────────────────────────

// FetchExemptions returns all exemption windows for a user.
func (r *EventRepository) FetchExemptions(ctx context.Context, userID string) ([]*prayer.ExemptionWindow, error) {
	query := `
		SELECT id, user_id, start_date, end_date, reason
		FROM exemption_windows
		WHERE user_id = $1
		ORDER BY start_date ASC
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, shared.StoreError("prayer", "FetchExemptions", err)
	}
	defer rows.Close()

	var windows []*prayer.ExemptionWindow
	for rows.Next() {
		w := &prayer.ExemptionWindow{}
		if err := rows.Scan(&w.ID, &w.UserID, &w.StartDate, &w.EndDate, &w.Reason); err != nil {
			return nil, shared.StoreError("prayer", "FetchExemptions", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("prayer", "FetchExemptions", err)
	}

	return windows, nil
}

// AddExemption opens or records an exemption window.
func (r *EventRepository) AddExemption(ctx context.Context, window *prayer.ExemptionWindow) error {
	query := `
		INSERT INTO exemption_windows (id, user_id, start_date, end_date, reason)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		window.ID,
		window.UserID,
		window.StartDate,
		window.EndDate,
		window.Reason,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("prayer", "AddExemption", shared.ErrConflict,
				fmt.Sprintf("window %s already exists", window.ID))
		}
		return shared.StoreError("prayer", "AddExemption", err)
	}

	return nil
}

// CloseExemption closes an open exemption window. Closing an already closed
// window is rejected so a stale client cannot shrink history.
func (r *EventRepository) CloseExemption(ctx context.Context, windowID string, end time.Time) error {
	query := `
		UPDATE exemption_windows
		SET end_date = $2
		WHERE id = $1 AND end_date IS NULL
	`

	tag, err := r.conn.Exec(ctx, query, windowID, end)
	if err != nil {
		return shared.StoreError("prayer", "CloseExemption", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("prayer", "CloseExemption", shared.ErrNotFound,
			fmt.Sprintf("open window %s not found", windowID))
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanEvent(row pgx.Row) (*prayer.CompletionEvent, error) {
	var (
		e          prayer.CompletionEvent
		prayerName string
	)

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&prayerName,
		&e.ScheduledAt,
		&e.CompletedAt,
		&e.Completed,
		&e.HasReflection,
	)
	if err != nil {
		return nil, err
	}

	e.Prayer = prayer.Type(prayerName)
	return &e, nil
}
