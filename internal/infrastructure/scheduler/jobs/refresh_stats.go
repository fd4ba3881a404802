package jobs

import (
	"context"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/query"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS REFRESH JOB
// ══════════════════════════════════════════════════════════════════════════════

// ActiveUserSource lists the users whose cached statistics are worth keeping
// warm, typically those with recent completion activity.
type ActiveUserSource interface {
	ActiveUserIDs(ctx context.Context) ([]string, error)
}

// ActiveUserFunc adapts a function to the ActiveUserSource interface.
type ActiveUserFunc func(ctx context.Context) ([]string, error)

// ActiveUserIDs implements ActiveUserSource.
func (f ActiveUserFunc) ActiveUserIDs(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// RefreshStatsJob recomputes and re-caches consistency statistics for active
// users so day-boundary streak changes show up without waiting for a cache
// TTL to lapse.
type RefreshStatsJob struct {
	users       ActiveUserSource
	consistency *query.GetConsistencyHandler
	log         *logger.Logger
	perUserWait time.Duration
}

// NewRefreshStatsJob creates the stats refresh job.
func NewRefreshStatsJob(users ActiveUserSource, consistency *query.GetConsistencyHandler, log *logger.Logger) *RefreshStatsJob {
	if log == nil {
		log = logger.Default()
	}
	return &RefreshStatsJob{
		users:       users,
		consistency: consistency,
		log:         log.With(logger.Component("refresh_stats")),
	}
}

// Name returns the unique name of the job.
func (j *RefreshStatsJob) Name() string {
	return "refresh_stats"
}

// Description returns a human-readable description of the job.
func (j *RefreshStatsJob) Description() string {
	return "Recomputes cached consistency statistics for active users"
}

// Run executes one refresh pass. Per-user failures are logged and skipped so
// one broken log cannot starve everybody else's refresh.
func (j *RefreshStatsJob) Run(ctx context.Context) error {
	userIDs, err := j.users.ActiveUserIDs(ctx)
	if err != nil {
		return err
	}

	refreshed := 0
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, err := j.consistency.Handle(ctx, query.GetConsistencyQuery{
			UserID: userID,
			Fresh:  true,
		})
		if err != nil {
			j.log.Warn("stats refresh failed for user",
				logger.UserID(userID),
				logger.Err(err),
			)
			continue
		}
		refreshed++

		if j.perUserWait > 0 {
			time.Sleep(j.perUserWait)
		}
	}

	j.log.Info("stats refresh pass finished",
		logger.Int("users", len(userIDs)),
		logger.Int("refreshed", refreshed),
	)
	return nil
}
