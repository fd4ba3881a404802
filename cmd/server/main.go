// Command server runs the HTTP API for the prayer consistency engine.
//
// The process wires the full stack: PostgreSQL persistence, optional
// Redis caching, the in-memory event bus, and every command and query
// handler behind the REST interface. It runs migrations on startup and
// shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	// Application layer
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/command"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/query"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/saga"

	// Domain layer
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/badge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"

	// Infrastructure layer
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/messaging"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/persistence/postgres"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/JoodasCode/hopium-prayer-app-sub000/internal/interface/http"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/interface/http/handlers"

	"github.com/JoodasCode/hopium-prayer-app-sub000/config"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

const version = "1.0.0"

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

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})
	log.Info("starting prayer engine API",
		logger.String("version", version),
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
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var statsCache query.ConsistencyCache
	var redisCache *redis.Cache
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
		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, stats caching disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			statsCache = redis.NewStatsCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultConfig()
	busConfig.Logger = log
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		if err := bus.Close(); err != nil {
			log.Warn("event bus close failed", logger.Err(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	eventRepo := postgres.NewEventRepository(dbConn)
	ledgerRepo := postgres.NewLedgerRepository(dbConn)
	badgeRepo := postgres.NewBadgeRepository(dbConn)
	challengeRepo := postgres.NewChallengeRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. DOMAIN SERVICES AND CATALOGS
	// ─────────────────────────────────────────────────────────────────────────
	if err := progression.ValidateDefaults(); err != nil {
		return fmt.Errorf("rank table is misconfigured: %w", err)
	}

	calculator := prayer.NewStreakCalculator(log)

	badgeCatalog, err := badge.NewCatalog(badge.DefaultDefinitions())
	if err != nil {
		return fmt.Errorf("failed to build badge catalog: %w", err)
	}
	challengeCatalog, err := challenge.NewCatalog(challenge.DefaultTemplates())
	if err != nil {
		return fmt.Errorf("failed to build challenge catalog: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	loc := cfg.App.Location

	awardXP := command.NewAwardXPHandler(ledgerRepo, bus)

	deps := httpserver.Dependencies{
		GetConsistencyHandler: query.NewGetConsistencyHandler(
			eventRepo, calculator, statsCache, cfg.Redis.StatsTTL, loc, log),
		GetProfileHandler:    query.NewGetProfileHandler(ledgerRepo),
		GetBadgesHandler:     query.NewGetBadgesHandler(badgeCatalog, badgeRepo, eventRepo, calculator, loc),
		GetChallengesHandler: query.NewGetChallengesHandler(challengeRepo, loc),

		RecordCompletionHandler:        command.NewRecordCompletionHandler(eventRepo, awardXP, calculator, bus, loc),
		GenerateChallengesHandler:      command.NewGenerateChallengesHandler(challengeCatalog, challengeRepo, nil, bus, loc),
		UpdateChallengeProgressHandler: command.NewUpdateChallengeProgressHandler(challengeRepo),
		CompleteChallengeHandler:       command.NewCompleteChallengeHandler(challengeRepo, bus),
		AddExemptionHandler:            command.NewAddExemptionHandler(eventRepo, bus),
		CloseExemptionHandler:          command.NewCloseExemptionHandler(eventRepo),

		BadgeAwardFlow: saga.NewBadgeAwardFlow(badgeCatalog, badgeRepo, eventRepo, calculator, bus, loc, log),

		Logger:        log,
		HealthChecker: buildHealthChecker(dbConn, redisCache),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpserver.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	serverConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	server := httpserver.NewServer(serverConfig, deps)
	errCh := server.StartAsync()
	log.Info("HTTP server listening", logger.String("address", serverConfig.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 11. WAIT FOR SHUTDOWN SIGNAL
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	log.Info("server stopped cleanly")
	return nil
}

// buildHealthChecker registers a ping check per backing store. The Redis
// check is only added when a connection was actually established.
func buildHealthChecker(db *postgres.Connection, cache *redis.Cache) handlers.HealthChecker {
	checker := handlers.NewCompositeHealthChecker(version)
	checker.AddCheck("postgres", handlers.NewPingCheck(db))
	if cache != nil {
		checker.AddCheck("redis", handlers.NewPingCheck(cache))
	}
	return checker
}
