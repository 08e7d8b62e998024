package service

import (
	"context"
	"time"

	"crm_insights_backend/internal/insights/domain"
	"crm_insights_backend/internal/insights/flags"
	"crm_insights_backend/internal/insights/metrics"
	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/internal/insights/transport"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// LeadInsights computes metrics, flags and suggested actions for one lead.
func (s *Service) LeadInsights(ctx context.Context, scope repository.Scope, leadID uuid.UUID) (transport.LeadInsightsResponse, error) {
	const op = "insights.LeadInsights"
	start := time.Now()

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	history, err := s.loadLeadHistory(ctx, scope, leadID)
	if err != nil {
		return transport.LeadInsightsResponse{}, notFoundOr(ctx, op, "lead", err)
	}

	now := s.now()
	m := metrics.ComputeLead(history, now)
	fired := flags.EvaluateLead(m, history.Lead)

	s.log.InsightsComputed("lead", leadID.String(), 1+len(history.Activities)+len(history.Files)+len(history.Transitions), time.Since(start))

	return transport.LeadInsightsResponse{
		LeadID:           history.Lead.ID,
		Stage:            history.Lead.Stage,
		Metrics:          m,
		Flags:            fired,
		SuggestedActions: flags.SuggestLeadActions(fired, history.Lead),
		ComputedAt:       now,
	}, nil
}

// ClientInsights computes metrics, flags and suggested actions for one client.
func (s *Service) ClientInsights(ctx context.Context, scope repository.Scope, clientID uuid.UUID) (transport.ClientInsightsResponse, error) {
	const op = "insights.ClientInsights"
	start := time.Now()

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	client, err := s.repo.GetClient(ctx, scope, clientID)
	if err != nil {
		return transport.ClientInsightsResponse{}, notFoundOr(ctx, op, "client", err)
	}

	history, err := s.loadClientHistory(ctx, scope.OrganizationID, client)
	if err != nil {
		return transport.ClientInsightsResponse{}, storeError(ctx, op, err)
	}

	now := s.now()
	m := metrics.ComputeClient(history, now)
	fired := flags.EvaluateClient(m, client)

	s.log.InsightsComputed("client", clientID.String(), 1+len(history.Activities)+len(history.Projects), time.Since(start))

	return transport.ClientInsightsResponse{
		ClientID:         client.ID,
		Status:           client.Status,
		Metrics:          m,
		Flags:            fired,
		SuggestedActions: flags.SuggestClientActions(fired, client, m.ActiveProjectCount),
		ComputedAt:       now,
	}, nil
}

// loadLeadHistory reads the lead first so a missing or foreign lead never
// triggers the related reads.
func (s *Service) loadLeadHistory(ctx context.Context, scope repository.Scope, leadID uuid.UUID) (domain.LeadHistory, error) {
	lead, err := s.repo.GetLead(ctx, scope, leadID)
	if err != nil {
		return domain.LeadHistory{}, err
	}

	h := domain.LeadHistory{Lead: lead}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		h.Activities, err = s.repo.ListLeadActivities(gctx, scope.OrganizationID, leadID)
		return err
	})
	g.Go(func() error {
		var err error
		h.Files, err = s.repo.ListLeadFiles(gctx, scope.OrganizationID, leadID)
		return err
	})
	g.Go(func() error {
		var err error
		h.Transitions, err = s.repo.ListStageTransitions(gctx, scope.OrganizationID, leadID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.LeadHistory{}, err
	}
	return h, nil
}

func (s *Service) loadClientHistory(ctx context.Context, organizationID uuid.UUID, client domain.Client) (domain.ClientHistory, error) {
	h := domain.ClientHistory{Client: client}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		h.Activities, err = s.repo.ListClientActivities(gctx, organizationID, client.ID)
		return err
	})
	g.Go(func() error {
		var err error
		h.Projects, err = s.repo.ListClientProjects(gctx, organizationID, client.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ClientHistory{}, err
	}
	return h, nil
}
