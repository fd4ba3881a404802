package prayer

import (
	"context"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// Repository defines the Record Store operations for the prayer log.
// This interface is implemented by the infrastructure layer; the domain has
// no knowledge of the actual storage mechanism. Range queries must return a
// consistent snapshot: events of a single day are never observed mid-write.
type Repository interface {
	// FetchEvents returns all completion events for a user within the time
	// range, ordered by ScheduledAt ascending. A zero range means the whole
	// log.
	FetchEvents(ctx context.Context, userID string, rng shared.TimeRange) ([]*CompletionEvent, error)

	// FetchExemptions returns all exemption windows for a user.
	FetchExemptions(ctx context.Context, userID string) ([]*ExemptionWindow, error)

	// GetEvent returns a single event by ID.
	GetEvent(ctx context.Context, id string) (*CompletionEvent, error)

	// InsertEvent appends a new completion event to the log.
	InsertEvent(ctx context.Context, event *CompletionEvent) error

	// UpdateEvent persists the unset-to-set transitions of an event
	// (completed, completedAt, hasReflection). Other fields never change.
	UpdateEvent(ctx context.Context, event *CompletionEvent) error

	// AddExemption opens or records an exemption window.
	AddExemption(ctx context.Context, window *ExemptionWindow) error

	// CloseExemption closes an open exemption window.
	CloseExemption(ctx context.Context, windowID string, end time.Time) error
}
