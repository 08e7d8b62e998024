package service

import (
	"context"
	"time"

	"crm_insights_backend/internal/insights/analytics"
	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/internal/insights/transport"

	"golang.org/x/sync/errgroup"
)

// Dashboard builds the aggregate dashboard for the scope. The three
// collections are read concurrently and independently; the result is a
// best-effort view, not a point-in-time one.
func (s *Service) Dashboard(ctx context.Context, scope repository.Scope, period analytics.Period) (transport.DashboardResponse, error) {
	const op = "insights.Dashboard"
	start := time.Now()

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, scope, period)
		if err != nil {
			s.log.Warn("dashboard cache read failed", "error", err, "organization_id", scope.OrganizationID)
		} else if ok {
			return transport.DashboardResponse{Dashboard: cached, Cached: true}, nil
		}
	}

	snap, err := s.loadSnapshot(ctx, scope)
	if err != nil {
		return transport.DashboardResponse{}, storeError(ctx, op, err)
	}

	dashboard := analytics.Build(snap, period, s.now())
	s.log.InsightsComputed("dashboard", scope.OrganizationID.String(), snap.Records(), time.Since(start))

	if s.cache != nil {
		if err := s.cache.Set(ctx, scope, period, dashboard); err != nil {
			s.log.Warn("dashboard cache write failed", "error", err, "organization_id", scope.OrganizationID)
		}
	}

	return transport.DashboardResponse{Dashboard: dashboard}, nil
}

func (s *Service) loadSnapshot(ctx context.Context, scope repository.Scope) (analytics.Snapshot, error) {
	var snap analytics.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Leads, err = s.repo.ListLeads(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Clients, err = s.repo.ListClients(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Projects, err = s.repo.ListProjects(gctx, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return analytics.Snapshot{}, err
	}
	return snap, nil
}
