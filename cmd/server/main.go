// Package main is the entry point for the Mihrab progress service.
//
// The service turns scored recitation attempts into visible progress:
// per-skill mastery, weekly activity, streaks, levels, and badges.
// One HTTP process owns the whole pipeline.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure progress rules without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: repositories, scoring oracle client, messaging
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mihrab-hub/mihrab-progress-hub/config"

	// Application layer
	"github.com/mihrab-hub/mihrab-progress-hub/internal/application/command"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/application/eventhandler"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/application/query"

	// Domain layer
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/badge"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"

	// Infrastructure layer
	"github.com/mihrab-hub/mihrab-progress-hub/internal/infrastructure/external/oracle"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/infrastructure/messaging"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/infrastructure/persistence/postgres"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/infrastructure/persistence/redis"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/infrastructure/scheduler"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/infrastructure/scheduler/jobs"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/infrastructure/service"

	// Interface layer
	httpserver "github.com/mihrab-hub/mihrab-progress-hub/internal/interface/http"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/interface/http/handlers"

	// Packages
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/logger"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/retry"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

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

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting mihrab progress service",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
		"timezone", cfg.App.Timezone,
	)

	// All streak and weekly-activity day boundaries follow the configured
	// timezone. Must be set before any attempt is processed.
	timeutil.DayBoundaryZone = cfg.App.Location

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

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
	} else {
		appliedCount := 0
		for _, m := range status {
			if m.IsApplied {
				appliedCount++
			}
		}
		log.Info("migrations completed", "applied", appliedCount, "total", len(status))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	// Everything backed by Redis degrades to postgres when it is absent:
	// learner snapshots are read from the database, ranks fall back to a
	// COUNT query, leaderboard payloads are rebuilt per request.
	var redisCache *redis.Cache
	var leaderboardCache *redis.LeaderboardCache
	var learnerCache learner.Cache
	var rankProjector command.RankProjector
	var rankingView query.RankingView

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...", "addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
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
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			learnerCache = redis.NewLearnerCache(redisCache)

			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			if cfg.Features.IsEnabled(config.FeatureLeaderboardRanks, nil) {
				rankProjector = leaderboardCache
			}
			if cfg.Features.IsEnabled(config.FeatureLeaderboardCache, nil) {
				rankingView = leaderboardCache
			}
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	learnerRepo := postgres.NewLearnerRepository(dbConn)
	attemptRepo := postgres.NewAttemptRepository(dbConn)
	skillRepo := postgres.NewSkillRepository(dbConn)
	weeklyRepo := postgres.NewWeeklyRepository(dbConn)
	badgeRepo := postgres.NewBadgeRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	if cfg.Features.IsEnabled(config.FeatureEventsActivityLog, nil) {
		activityLog := messaging.NewActivityLogSubscriber(log)
		if err := activityLog.Register(eventBus); err != nil {
			return fmt.Errorf("failed to register activity log: %w", err)
		}
	}

	if leaderboardCache != nil {
		invalidation := eventhandler.NewOnAttemptScoredHandler(
			leaderboardCache, log, eventhandler.DefaultAttemptScoredConfig())
		if err := invalidation.Register(eventBus); err != nil {
			return fmt.Errorf("failed to register payload invalidation: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCORING ORACLE CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scoring oracle client...", "base_url", cfg.Oracle.BaseURL)

	oracleConfig := oracle.DefaultClientConfig(cfg.Oracle.BaseURL)
	oracleConfig.APIKey = cfg.Oracle.APIKey
	oracleConfig.Timeout = cfg.Oracle.RequestTimeout
	oracleConfig.RateLimiterConfig.RequestsPerSecond = cfg.Oracle.RateLimit
	oracleConfig.RateLimiterConfig.BurstSize = cfg.Oracle.RateLimitBurst
	oracleConfig.RetryConfig = retry.Config{
		MaxAttempts:  cfg.Oracle.MaxRetries,
		InitialDelay: cfg.Oracle.RetryBaseDelay,
		MaxDelay:     cfg.Oracle.RetryMaxDelay,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
	oracleConfig.BreakerFailureThreshold = cfg.Oracle.CircuitBreakerThreshold
	oracleConfig.BreakerTimeout = cfg.Oracle.CircuitBreakerTimeout
	oracleConfig.Logger = log

	oracleClient := oracle.NewClient(oracleConfig)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	uow := service.NewPgUnitOfWork(dbConn)
	scorer := service.NewScorerAdapter(oracleClient)
	catalog := badge.NewCatalog(cfg.Features.IsEnabled(config.FeatureBadgesExtendedSet, nil))

	submitCmd := command.NewSubmitRecitationHandler(
		uow,
		scorer,
		attemptRepo,
		learnerRepo,
		badgeRepo,
		catalog,
		learnerCache,
		rankProjector,
		eventBus,
		log,
	)
	registerCmd := command.NewRegisterLearnerHandler(learnerRepo)
	updateProfileCmd := command.NewUpdateProfileHandler(learnerRepo, learnerCache, rankProjector, log)

	skillProgressQuery := query.NewGetSkillProgressHandler(skillRepo, learnerRepo)
	weeklyActivityQuery := query.NewGetWeeklyActivityHandler(weeklyRepo, learnerRepo)
	learnerStatsQuery := query.NewGetLearnerStatsHandler(learnerRepo, attemptRepo, badgeRepo, learnerCache)
	badgesQuery := query.NewGetBadgesHandler(badgeRepo, catalog, learnerRepo)
	attemptHistoryQuery := query.NewGetAttemptHistoryHandler(attemptRepo, learnerRepo)
	leaderboardQuery := query.NewGetLeaderboardHandler(learnerRepo, rankingView)
	learnerRankQuery := query.NewGetLearnerRankHandler(learnerRepo, rankingView)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("postgres", handlers.NewPingCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("redis", handlers.NewPingCheck(redisCache))
	}
	// Oracle outages degrade scoring instead of blocking submissions, so
	// the check reports but never gates readiness.
	healthChecker.AddInformationalCheck("oracle", handlers.NewOracleCheck(oracleClient))

	// ─────────────────────────────────────────────────────────────────────────
	// 11. BACKGROUND JOBS
	// ─────────────────────────────────────────────────────────────────────────
	// The ranking projection drifts when Redis restarts or misses
	// updates; a periodic rebuild from postgres repairs it.
	if cfg.Scheduler.Enabled && leaderboardCache != nil {
		sched := scheduler.New(scheduler.Config{
			Logger:   log,
			Timezone: cfg.App.Location,
		})

		rebuildJob := jobs.NewRebuildLeaderboardJob(
			learnerRepo, leaderboardCache, log, jobs.DefaultRebuildLeaderboardConfig())
		if err := sched.Register(rebuildJob,
			scheduler.NewIntervalSchedule(cfg.Scheduler.LeaderboardRebuildInterval)); err != nil {
			return fmt.Errorf("failed to register rebuild job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()

		// Seed the projection at startup so ranks are correct before the
		// first interval elapses.
		if _, err := sched.RunNow(ctx, rebuildJob.Name()); err != nil {
			log.Warn("initial leaderboard rebuild failed", "error", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.MaxUploadBytes = cfg.HTTP.MaxUploadBytes
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	httpLogger := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	httpDeps := httpserver.Dependencies{
		SubmitRecitationHandler:  submitCmd,
		RegisterLearnerHandler:   registerCmd,
		UpdateProfileHandler:     updateProfileCmd,
		GetSkillProgressHandler:  skillProgressQuery,
		GetWeeklyActivityHandler: weeklyActivityQuery,
		GetLearnerStatsHandler:   learnerStatsQuery,
		GetBadgesHandler:         badgesQuery,
		GetAttemptHistoryHandler: attemptHistoryQuery,
		GetLeaderboardHandler:    leaderboardQuery,
		GetLearnerRankHandler:    learnerRankQuery,
		Logger:                   httpLogger,
		HealthChecker:            healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 13. START
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)

	go func() {
		log.Info("starting HTTP server", "address", httpServer.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 14. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("mihrab progress service is running",
		"http_address", httpServer.Address(),
		"redis_enabled", redisCache != nil,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	log.Info("stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		shutdownErr = err
	}

	// Event bus and database close through defers.

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures application-wide structured logging.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseSlogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" || cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseSlogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
