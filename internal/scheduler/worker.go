package scheduler

import (
	"context"
	"fmt"

	"crm_insights_backend/internal/insights/transport"
	"crm_insights_backend/platform/config"
	"crm_insights_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// HealthRefresher recomputes the cached health scores of one organization.
type HealthRefresher interface {
	RefreshClientHealth(ctx context.Context, organizationID uuid.UUID) (transport.HealthRefreshResult, error)
}

// OrganizationLister enumerates organizations for the fan-out task.
type OrganizationLister interface {
	ListOrganizationIDs(ctx context.Context) ([]uuid.UUID, error)
}

// HealthRefreshEnqueuer queues a per-organization refresh.
type HealthRefreshEnqueuer interface {
	EnqueueHealthRefresh(ctx context.Context, organizationID uuid.UUID) (string, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	refresher HealthRefresher
	orgs      OrganizationLister
	enqueuer  HealthRefreshEnqueuer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, refresher HealthRefresher, orgs OrganizationLister, enqueuer HealthRefreshEnqueuer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(refresher, orgs, enqueuer, log)
	w.server = server
	return w, nil
}

func newWorker(refresher HealthRefresher, orgs OrganizationLister, enqueuer HealthRefreshEnqueuer, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:       mux,
		refresher: refresher,
		orgs:      orgs,
		enqueuer:  enqueuer,
		log:       log,
	}

	mux.HandleFunc(TaskRefreshClientHealth, w.handleRefreshClientHealth)
	mux.HandleFunc(TaskRefreshAllClientHealth, w.handleRefreshAllClientHealth)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleRefreshClientHealth(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRefreshClientHealthPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := w.refresher.RefreshClientHealth(ctx, orgID)
	if err != nil {
		return err
	}

	w.log.Info("client health refreshed",
		"organization_id", orgID,
		"clients_updated", result.ClientsUpdated,
		"at_risk", result.AtRiskCount,
	)
	return nil
}

// handleRefreshAllClientHealth enqueues per-organization tasks so one slow
// tenant does not hold up the rest.
func (w *Worker) handleRefreshAllClientHealth(ctx context.Context, _ *asynq.Task) error {
	ids, err := w.orgs.ListOrganizationIDs(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, id := range ids {
		if _, err := w.enqueuer.EnqueueHealthRefresh(ctx, id); err != nil {
			failed++
			w.log.Warn("failed to enqueue health refresh", "organization_id", id, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("enqueue health refresh: %d of %d organizations failed", failed, len(ids))
	}
	return nil
}
