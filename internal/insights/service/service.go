// Package service orchestrates the insights engine: it reads a snapshot from
// the record store under a deadline, runs the pure calculators, and shapes
// the response. A failed read is always reported as an error, never as
// zero-valued metrics.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm_insights_backend/internal/events"
	"crm_insights_backend/internal/insights/analytics"
	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/platform/apperr"
	"crm_insights_backend/platform/config"
	"crm_insights_backend/platform/logger"

	"github.com/google/uuid"
)

// Repository is the record-store surface the service needs.
type Repository interface {
	repository.LeadHistoryReader
	repository.ClientHistoryReader
	repository.SnapshotReader
	repository.HealthScoreWriter
}

// DashboardCache stores computed dashboards per scope and period. Failures
// are logged and the dashboard is recomputed.
type DashboardCache interface {
	Get(ctx context.Context, scope repository.Scope, period analytics.Period) (analytics.Dashboard, bool, error)
	Set(ctx context.Context, scope repository.Scope, period analytics.Period, dashboard analytics.Dashboard) error
}

// HealthRefreshEnqueuer queues an organization-wide health refresh.
type HealthRefreshEnqueuer interface {
	EnqueueHealthRefresh(ctx context.Context, organizationID uuid.UUID) (string, error)
}

// Service computes lead, client and dashboard insights.
type Service struct {
	repo     Repository
	cache    DashboardCache
	enqueuer HealthRefreshEnqueuer
	bus      events.Bus
	log      *logger.Logger
	timeout  time.Duration
	now      func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithDashboardCache enables dashboard caching.
func WithDashboardCache(c DashboardCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithHealthRefreshEnqueuer routes admin refresh requests through a queue.
// Without one the refresh runs inline.
func WithHealthRefreshEnqueuer(e HealthRefreshEnqueuer) Option {
	return func(s *Service) { s.enqueuer = e }
}

// WithEventBus publishes health refresh events on bus.
func WithEventBus(bus events.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates the insights service.
func New(repo Repository, cfg config.InsightsConfig, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		log:     log,
		timeout: cfg.GetInsightsRequestTimeout(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// storeError classifies a failed read. A driver that surfaces its own error
// after the deadline fired still yields a timeout.
func storeError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return apperr.FromStore(op, err)
}

func notFoundOr(ctx context.Context, op, what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(what + " not found").WithOp(op)
	}
	return storeError(ctx, op, err)
}
