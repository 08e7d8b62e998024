// Package insights provides the CRM insights bounded context module.
// This file defines the module that encapsulates insights setup and route
// registration.
package insights

import (
	"crm_insights_backend/internal/events"
	apphttp "crm_insights_backend/internal/http"
	"crm_insights_backend/internal/insights/handler"
	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/internal/insights/service"
	"crm_insights_backend/platform/config"
	"crm_insights_backend/platform/logger"
	"crm_insights_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the insights bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// Deps are the optional collaborators of the module. Nil fields disable the
// matching feature.
type Deps struct {
	Cache    service.DashboardCache
	Enqueuer service.HealthRefreshEnqueuer
}

// NewModule creates and initializes the insights module.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.InsightsConfig, log *logger.Logger, deps Deps) *Module {
	repo := repository.New(pool)

	opts := []service.Option{service.WithEventBus(eventBus)}
	if deps.Cache != nil {
		opts = append(opts, service.WithDashboardCache(deps.Cache))
	}
	if deps.Enqueuer != nil {
		opts = append(opts, service.WithHealthRefreshEnqueuer(deps.Enqueuer))
	}
	svc := service.New(repo, cfg, log, opts...)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "insights"
}

// Service returns the insights service for workers and the CLI.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts insights routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/insights"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/insights"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
