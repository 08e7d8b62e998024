package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"crm_insights_backend/internal/events"
	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/internal/insights/service"
	"crm_insights_backend/internal/scheduler"
	"crm_insights_backend/platform/config"
	"crm_insights_backend/platform/db"
	"crm_insights_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	eventBus.Subscribe(events.ClientHealthRefreshed{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if e, ok := event.(events.ClientHealthRefreshed); ok {
			log.Info("organization health refresh complete",
				"organization_id", e.OrganizationID,
				"clients_updated", e.ClientsUpdated,
				"at_risk", e.AtRiskCount,
			)
		}
		return nil
	}))

	queueClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = queueClient.Close() }()

	repo := repository.New(pool)
	// Refreshes run inline here; the queue only carries work into this process.
	svc := service.New(repo, cfg, log, service.WithEventBus(eventBus))

	worker, err := scheduler.NewWorker(cfg, svc, repo, queueClient, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	schedule, err := scheduler.NewHealthRefreshSchedule(cfg, log)
	if err != nil {
		log.Error("failed to register health refresh schedule", "error", err)
		panic("failed to register health refresh schedule: " + err.Error())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		schedule.Run(ctx)
	}()

	worker.Run(ctx)
	wg.Wait()
	eventBus.Wait()
	log.Info("scheduler stopped")
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
