// Command worker runs the background job scheduler for the prayer
// consistency engine.
//
// It hosts two periodic jobs: expiring overdue challenge instances and
// refreshing cached consistency statistics for recently active users.
// When Redis is available, a distributed lock keeps multiple worker
// instances from running the expiry sweep concurrently.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Application layer
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/query"

	// Domain layer
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"

	// Infrastructure layer
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/persistence/postgres"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/persistence/redis"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/scheduler"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/scheduler/jobs"

	"github.com/JoodasCode/hopium-prayer-app-sub000/config"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled, nothing to run (set SCHEDULER_ENABLED=true)")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})
	log.Info("starting prayer engine worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional: job lock + stats cache)
	// ─────────────────────────────────────────────────────────────────────────
	var statsCache query.ConsistencyCache
	var jobLock jobs.JobLock
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout
		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, running without job lock", logger.Err(err))
		} else {
			defer redisCache.Close()
			statsCache = redis.NewStatsCache(redisCache)
			jobLock = redisCache
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES AND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	if err := progression.ValidateDefaults(); err != nil {
		return fmt.Errorf("rank table is misconfigured: %w", err)
	}

	eventRepo := postgres.NewEventRepository(dbConn)
	challengeRepo := postgres.NewChallengeRepository(dbConn)

	calculator := prayer.NewStreakCalculator(log)
	consistency := query.NewGetConsistencyHandler(
		eventRepo, calculator, statsCache, cfg.Redis.StatsTTL, cfg.App.Location, log)

	activeUsers := jobs.ActiveUserFunc(func(ctx context.Context) ([]string, error) {
		since := time.Now().UTC().Add(-cfg.Scheduler.ActiveUserWindow)
		return eventRepo.ActiveUserIDs(ctx, since)
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.Config{
		Logger:   log,
		Timezone: cfg.App.Location,
	})

	expireJob := jobs.NewExpireChallengesJob(challengeRepo, jobLock, log)
	if err := sched.Register(expireJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ExpireChallengesInterval)); err != nil {
		return fmt.Errorf("failed to register %s: %w", expireJob.Name(), err)
	}

	refreshJob := jobs.NewRefreshStatsJob(activeUsers, consistency, log)
	if err := sched.Register(refreshJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RefreshStatsInterval)); err != nil {
		return fmt.Errorf("failed to register %s: %w", refreshJob.Name(), err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	for _, info := range sched.ListJobs() {
		log.Info("job registered",
			logger.String("job", info.Name),
			logger.String("schedule", info.Schedule),
			logger.Time("next_run", info.NextRun),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. WAIT FOR SHUTDOWN SIGNAL
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}
	log.Info("worker stopped cleanly")
	return nil
}
