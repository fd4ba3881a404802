// Package jobs contains the scheduled jobs of the engine: the challenge
// expiry sweep and the consistency stats refresh.
package jobs

import (
	"context"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE EXPIRY JOB
// ══════════════════════════════════════════════════════════════════════════════

// JobLock serializes a job across worker instances. A nil lock means the
// sweep runs unconditionally, which is fine for a single instance.
type JobLock interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// ExpireChallengesJob transitions every ACTIVE challenge whose deadline has
// passed to EXPIRED. Sweeping is a safety net behind lazy expiry: reads
// already treat overdue instances as expired, the sweep makes it durable.
type ExpireChallengesJob struct {
	challenges challenge.Repository
	lock       JobLock
	lockTTL    time.Duration
	log        *logger.Logger
}

// NewExpireChallengesJob creates the expiry sweep job.
func NewExpireChallengesJob(challenges challenge.Repository, lock JobLock, log *logger.Logger) *ExpireChallengesJob {
	if log == nil {
		log = logger.Default()
	}
	return &ExpireChallengesJob{
		challenges: challenges,
		lock:       lock,
		lockTTL:    30 * time.Second,
		log:        log.With(logger.Component("expire_challenges")),
	}
}

// Name returns the unique name of the job.
func (j *ExpireChallengesJob) Name() string {
	return "expire_challenges"
}

// Description returns a human-readable description of the job.
func (j *ExpireChallengesJob) Description() string {
	return "Marks overdue ACTIVE challenges as EXPIRED"
}

// Run executes one sweep.
func (j *ExpireChallengesJob) Run(ctx context.Context) error {
	if j.lock != nil {
		acquired, err := j.lock.AcquireLock(ctx, j.Name(), j.lockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			j.log.Debug("sweep already running elsewhere, skipping")
			return nil
		}
		defer func() {
			if err := j.lock.ReleaseLock(context.WithoutCancel(ctx), j.Name()); err != nil {
				j.log.Warn("failed to release job lock", logger.Err(err))
			}
		}()
	}

	expired, err := j.challenges.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	if expired > 0 {
		j.log.Info("expired overdue challenges", logger.Int("count", expired))
	}
	return nil
}
