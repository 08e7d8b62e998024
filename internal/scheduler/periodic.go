package scheduler

import (
	"context"
	"fmt"

	"crm_insights_backend/platform/config"
	"crm_insights_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultHealthRefreshCron = "@every 6h"

// HealthRefreshSchedule registers the periodic fan-out task with asynq's
// scheduler. Only one scheduler process should run per redis.
type HealthRefreshSchedule struct {
	scheduler *asynq.Scheduler
	spec      string
	queue     string
	log       *logger.Logger
}

func NewHealthRefreshSchedule(cfg config.SchedulerConfig, log *logger.Logger) (*HealthRefreshSchedule, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	spec := cfg.GetHealthRefreshCron()
	if spec == "" {
		spec = defaultHealthRefreshCron
	}

	s := &HealthRefreshSchedule{
		spec:  spec,
		queue: queueName(cfg),
		log:   log,
	}
	s.scheduler = asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		PostEnqueueFunc: s.afterEnqueue,
	})

	if _, err := s.scheduler.Register(spec, NewRefreshAllClientHealthTask(), asynq.Queue(s.queue)); err != nil {
		return nil, fmt.Errorf("register health refresh %q: %w", spec, err)
	}
	return s, nil
}

func (s *HealthRefreshSchedule) afterEnqueue(info *asynq.TaskInfo, err error) {
	if err != nil {
		s.log.Warn("periodic health refresh enqueue failed", "error", err)
		return
	}
	s.log.Debug("periodic health refresh enqueued", "task_id", info.ID, "queue", info.Queue)
}

func (s *HealthRefreshSchedule) Run(ctx context.Context) {
	if s == nil || s.scheduler == nil {
		return
	}

	if err := s.scheduler.Start(); err != nil {
		s.log.Error("health refresh scheduler failed to start", "error", err)
		return
	}
	s.log.Info("health refresh scheduled", "spec", s.spec, "queue", s.queue)

	<-ctx.Done()
	s.scheduler.Shutdown()
}
