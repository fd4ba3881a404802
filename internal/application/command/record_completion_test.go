package command

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/persistence/memory"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

var completionBase = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newCompletionHandler(store *memory.Store) *RecordCompletionHandler {
	log := logger.New(logger.Options{Output: io.Discard})
	return NewRecordCompletionHandler(
		store,
		NewAwardXPHandler(store, nil),
		prayer.NewStreakCalculator(log),
		nil,
		time.UTC,
	)
}

// seedCompletedDay inserts one fully completed day of events.
func seedCompletedDay(t *testing.T, store *memory.Store, userID string, day int) {
	t.Helper()
	for i, p := range prayer.AllTypes() {
		scheduled := completionBase.AddDate(0, 0, day).Add(time.Duration(5+3*i) * time.Hour)
		at := scheduled.Add(10 * time.Minute)
		err := store.InsertEvent(context.Background(), &prayer.CompletionEvent{
			ID:          fmt.Sprintf("%s-d%d-%s", userID, day, p),
			UserID:      userID,
			Prayer:      p,
			ScheduledAt: scheduled,
			Completed:   true,
			CompletedAt: &at,
		})
		require.NoError(t, err)
	}
}

func TestRecordCompletionHandler_AdHoc(t *testing.T) {
	store := memory.NewStore()
	handler := newCompletionHandler(store)
	ctx := context.Background()

	scheduled := completionBase.Add(5 * time.Hour)
	result, err := handler.Handle(ctx, RecordCompletionCommand{
		UserID:      "u1",
		Prayer:      prayer.Fajr,
		ScheduledAt: scheduled,
		CompletedAt: scheduled.Add(5 * time.Minute),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.EventID)
	assert.Equal(t, CompletionXP, result.XPAwarded)

	event, err := store.GetEvent(ctx, result.EventID)
	require.NoError(t, err)
	assert.True(t, event.Completed)
}

func TestRecordCompletionHandler_ReflectionBonus(t *testing.T) {
	store := memory.NewStore()
	handler := newCompletionHandler(store)
	ctx := context.Background()

	result, err := handler.Handle(ctx, RecordCompletionCommand{
		UserID:         "u1",
		Prayer:         prayer.Dhuhr,
		ScheduledAt:    completionBase.Add(13 * time.Hour),
		CompletedAt:    completionBase.Add(13*time.Hour + 2*time.Minute),
		WithReflection: true,
	})
	require.NoError(t, err)
	assert.Equal(t, CompletionXP+ReflectionBonusXP, result.XPAwarded)
}

func TestRecordCompletionHandler_ExistingEventIdempotent(t *testing.T) {
	store := memory.NewStore()
	handler := newCompletionHandler(store)
	ctx := context.Background()

	scheduled := completionBase.Add(5 * time.Hour)
	require.NoError(t, store.InsertEvent(ctx, &prayer.CompletionEvent{
		ID: "e1", UserID: "u1", Prayer: prayer.Fajr, ScheduledAt: scheduled,
	}))

	first, err := handler.Handle(ctx, RecordCompletionCommand{
		UserID: "u1", EventID: "e1", CompletedAt: scheduled.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, CompletionXP, first.XPAwarded)

	second, err := handler.Handle(ctx, RecordCompletionCommand{
		UserID: "u1", EventID: "e1", CompletedAt: scheduled.Add(2 * time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.Zero(t, second.XPAwarded)

	total, err := store.TotalXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(CompletionXP), total, "one completion, one award")
}

func TestRecordCompletionHandler_StreakMilestone(t *testing.T) {
	store := memory.NewStore()
	handler := newCompletionHandler(store)
	ctx := context.Background()

	// Six fully completed days, then the seventh recorded through the
	// handler. Reaching 4/5 on day seven crosses the 0.8 threshold and
	// the 7-day milestone fires exactly once.
	for d := 0; d < 6; d++ {
		seedCompletedDay(t, store, "u1", d)
	}
	day := 6
	for i, p := range prayer.AllTypes() {
		scheduled := completionBase.AddDate(0, 0, day).Add(time.Duration(5+3*i) * time.Hour)
		require.NoError(t, store.InsertEvent(ctx, &prayer.CompletionEvent{
			ID:          fmt.Sprintf("u1-d%d-%s", day, p),
			UserID:      "u1",
			Prayer:      p,
			ScheduledAt: scheduled,
		}))
	}

	var milestones []int
	for i, p := range prayer.AllTypes()[:5] {
		scheduled := completionBase.AddDate(0, 0, day).Add(time.Duration(5+3*i) * time.Hour)
		result, err := handler.Handle(ctx, RecordCompletionCommand{
			UserID:      "u1",
			EventID:     fmt.Sprintf("u1-d%d-%s", day, p),
			CompletedAt: scheduled.Add(time.Minute),
		})
		require.NoError(t, err)
		milestones = append(milestones, result.MilestonesHit...)
	}

	assert.Equal(t, []int{7}, milestones, "the bonus fires on exactly one call")

	total, err := store.TotalXP(ctx, "u1")
	require.NoError(t, err)
	// Five completions through the handler plus the one-time bonus.
	assert.Equal(t, int64(5*CompletionXP+50), total)
}
