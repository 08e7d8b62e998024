package service

import (
	"context"
	"errors"
	"time"

	"crm_insights_backend/internal/events"
	"crm_insights_backend/internal/insights/metrics"
	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/internal/insights/transport"
	"crm_insights_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	healthRefreshParallelism = 4
	atRiskThreshold          = 40
)

type scoredClient struct {
	score   int
	updated bool
}

// RefreshClientHealth recomputes the engagement score of every client in the
// organization and stores it as the client's cached health score. Clients
// that fall from 40 or above to below 40 raise ClientAtRisk.
func (s *Service) RefreshClientHealth(ctx context.Context, organizationID uuid.UUID) (transport.HealthRefreshResult, error) {
	const op = "insights.RefreshClientHealth"
	start := time.Now()

	clients, err := s.repo.ListClients(ctx, repository.OrganizationScope(organizationID))
	if err != nil {
		return transport.HealthRefreshResult{}, storeError(ctx, op, err)
	}

	now := s.now()
	results := make([]scoredClient, len(clients))

	// A failed client does not cancel the others: scores already written must
	// still have their crossings published, or the next run would read the
	// lowered score as the previous one and never report them.
	var g errgroup.Group
	g.SetLimit(healthRefreshParallelism)
	for i, client := range clients {
		g.Go(func() error {
			history, err := s.loadClientHistory(ctx, organizationID, client)
			if err != nil {
				return err
			}
			score := metrics.ComputeClient(history, now).EngagementScore
			err = s.repo.UpdateClientHealthScore(ctx, organizationID, client.ID, score, now)
			if errors.Is(err, repository.ErrNotFound) {
				// Deleted since it was listed.
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = scoredClient{score: score, updated: true}
			return nil
		})
	}
	refreshErr := g.Wait()

	result := transport.HealthRefreshResult{OrganizationID: organizationID, RefreshedAt: now}
	for i, client := range clients {
		r := results[i]
		if !r.updated {
			continue
		}
		result.ClientsUpdated++
		if r.score < atRiskThreshold {
			result.AtRiskCount++
		}
		if client.HealthScore != nil && *client.HealthScore >= atRiskThreshold && r.score < atRiskThreshold {
			s.publish(ctx, events.ClientAtRisk{
				BaseEvent:      events.NewBaseEvent(),
				OrganizationID: organizationID,
				ClientID:       client.ID,
				ClientName:     client.Name,
				OwnerID:        client.OwnerID,
				PreviousScore:  *client.HealthScore,
				CurrentScore:   r.score,
			})
		}
	}

	if refreshErr != nil {
		s.log.Warn("client health refresh incomplete",
			"organization_id", organizationID,
			"clients_updated", result.ClientsUpdated,
			"clients_total", len(clients),
			"error", refreshErr,
		)
		return transport.HealthRefreshResult{}, storeError(ctx, op, refreshErr)
	}

	s.publish(ctx, events.ClientHealthRefreshed{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: organizationID,
		ClientsUpdated: result.ClientsUpdated,
		AtRiskCount:    result.AtRiskCount,
	})

	s.log.InsightsComputed("health_refresh", organizationID.String(), len(clients), time.Since(start))
	return result, nil
}

// RequestHealthRefresh queues a refresh when a queue is configured and runs
// it inline otherwise.
func (s *Service) RequestHealthRefresh(ctx context.Context, organizationID uuid.UUID) (transport.HealthRefreshResponse, error) {
	if s.enqueuer != nil {
		taskID, err := s.enqueuer.EnqueueHealthRefresh(ctx, organizationID)
		if err != nil {
			return transport.HealthRefreshResponse{}, apperr.Wrap(apperr.KindUnavailable, "task queue unavailable", err).WithOp("insights.RequestHealthRefresh")
		}
		return transport.HealthRefreshResponse{OrganizationID: organizationID, Queued: true, TaskID: taskID}, nil
	}

	result, err := s.RefreshClientHealth(ctx, organizationID)
	if err != nil {
		return transport.HealthRefreshResponse{}, err
	}
	return transport.HealthRefreshResponse{OrganizationID: organizationID, Result: &result}, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}
