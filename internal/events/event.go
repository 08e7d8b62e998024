// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"crm_insights_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Insights Domain Events
// =============================================================================

// ClientHealthRefreshed is published once per organization after every
// client's cached engagement score has been rewritten.
type ClientHealthRefreshed struct {
	BaseEvent
	OrganizationID uuid.UUID `json:"organizationId"`
	ClientsUpdated int       `json:"clientsUpdated"`
	AtRiskCount    int       `json:"atRiskCount"`
}

func (e ClientHealthRefreshed) EventName() string { return "insights.client_health.refreshed" }

// ClientAtRisk is published when a client's score crosses from 40 or above
// to below 40.
type ClientAtRisk struct {
	BaseEvent
	OrganizationID uuid.UUID  `json:"organizationId"`
	ClientID       uuid.UUID  `json:"clientId"`
	ClientName     string     `json:"clientName"`
	OwnerID        *uuid.UUID `json:"ownerId,omitempty"`
	PreviousScore  int        `json:"previousScore"`
	CurrentScore   int        `json:"currentScore"`
}

func (e ClientAtRisk) EventName() string { return "insights.client.at_risk" }
