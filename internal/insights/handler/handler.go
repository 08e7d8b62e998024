package handler

import (
	"context"
	"net/http"

	"crm_insights_backend/internal/insights/analytics"
	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/internal/insights/transport"
	"crm_insights_backend/platform/httpkit"
	"crm_insights_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"

	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// InsightsService is what the handler needs from the insights service.
type InsightsService interface {
	LeadInsights(ctx context.Context, scope repository.Scope, leadID uuid.UUID) (transport.LeadInsightsResponse, error)
	ClientInsights(ctx context.Context, scope repository.Scope, clientID uuid.UUID) (transport.ClientInsightsResponse, error)
	Dashboard(ctx context.Context, scope repository.Scope, period analytics.Period) (transport.DashboardResponse, error)
	RequestHealthRefresh(ctx context.Context, organizationID uuid.UUID) (transport.HealthRefreshResponse, error)
}

type Handler struct {
	svc InsightsService
	val *validator.Validator
}

func New(svc InsightsService, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the read routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads/:id", h.GetLeadInsights)
	rg.GET("/clients/:id", h.GetClientInsights)
	rg.GET("/dashboard", httpkit.RequireAnyRole(RoleAdmin, RoleManager), h.GetDashboard)
}

// RegisterAdminRoutes mounts the maintenance routes on the admin group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/health-refresh", h.TriggerHealthRefresh)
}

// mustGetTenantID aborts with 403 when the token names no organization.
func mustGetTenantID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	tenantID, ok := identity.TenantID()
	if !ok {
		httpkit.Error(c, http.StatusForbidden, "tenant ID is required", nil)
		return uuid.UUID{}, false
	}
	return tenantID, true
}

// scopeFor gives admins and managers the whole organization and everyone else
// only their own records.
func scopeFor(identity httpkit.Identity, tenantID uuid.UUID) repository.Scope {
	if identity.HasAnyRole(RoleAdmin, RoleManager) {
		return repository.OrganizationScope(tenantID)
	}
	return repository.OwnerScope(tenantID, identity.UserID())
}

func (h *Handler) requestScope(c *gin.Context) (repository.Scope, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return repository.Scope{}, false
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return repository.Scope{}, false
	}
	return scopeFor(identity, tenantID), true
}

func (h *Handler) GetLeadInsights(c *gin.Context) {
	scope, ok := h.requestScope(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.LeadInsights(c.Request.Context(), scope, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetClientInsights(c *gin.Context) {
	scope, ok := h.requestScope(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.ClientInsights(c.Request.Context(), scope, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetDashboard(c *gin.Context) {
	scope, ok := h.requestScope(c)
	if !ok {
		return
	}

	var query transport.DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	period, err := analytics.ParsePeriod(query.Period)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Dashboard(c.Request.Context(), scope, period)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) TriggerHealthRefresh(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.RequestHealthRefresh(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if result.Queued {
		status = http.StatusAccepted
	}
	httpkit.JSON(c, status, result)
}
