// Command insights-report prints lead, client and dashboard insights for one
// organization and can trigger a client health refresh without the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/internal/insights/service"
	"crm_insights_backend/internal/scheduler"
	"crm_insights_backend/platform/config"
	"crm_insights_backend/platform/db"
	"crm_insights_backend/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(loadService).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadService connects to the database and builds the insights service.
// With queue set, refreshes are enqueued for the scheduler instead of run
// in this process.
func loadService(ctx context.Context, queue bool) (reportService, func(), error) {
	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewWithWriter(cfg.Env, os.Stderr)

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	closers := []func(){pool.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var opts []service.Option
	if queue {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect task queue: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		opts = append(opts, service.WithHealthRefreshEnqueuer(client))
	}

	return service.New(repository.New(pool), cfg, log, opts...), cleanup, nil
}
