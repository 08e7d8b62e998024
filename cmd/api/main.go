package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_insights_backend/internal/events"
	apphttp "crm_insights_backend/internal/http"
	"crm_insights_backend/internal/http/router"
	"crm_insights_backend/internal/insights"
	"crm_insights_backend/internal/insights/cache"
	"crm_insights_backend/internal/scheduler"
	"crm_insights_backend/migrations"
	"crm_insights_backend/platform/config"
	"crm_insights_backend/platform/db"
	"crm_insights_backend/platform/logger"
	"crm_insights_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	eventBus.Subscribe(events.ClientAtRisk{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if e, ok := event.(events.ClientAtRisk); ok {
			log.Warn("client health dropped below threshold",
				"organization_id", e.OrganizationID,
				"client_id", e.ClientID,
				"previous_score", e.PreviousScore,
				"current_score", e.CurrentScore,
			)
		}
		return nil
	}))

	deps, closeDeps := initOptionalDeps(cfg, log)
	defer closeDeps()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	val := validator.New()
	insightsModule := insights.NewModule(pool, eventBus, val, cfg, log, deps)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			insightsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initOptionalDeps wires the redis-backed dashboard cache and health refresh
// queue. Both are skipped when REDIS_URL is unset.
func initOptionalDeps(cfg *config.Config, log *logger.Logger) (insights.Deps, func()) {
	var deps insights.Deps
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; dashboard cache and queued health refresh disabled")
		return deps, func() {}
	}

	var closers []func()

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize dashboard cache", "error", err)
	} else {
		deps.Cache = cache.NewDashboardCache(redisClient, cfg.GetDashboardCacheTTL())
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	queueClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
	} else {
		deps.Enqueuer = queueClient
		closers = append(closers, func() { _ = queueClient.Close() })
	}

	return deps, func() {
		for _, c := range closers {
			c()
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
