// Package domain holds the read-only record snapshots the insights engine
// computes over. Values are passed by copy; nothing in this package mutates
// its inputs.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a pipeline opportunity.
type Lead struct {
	ID           uuid.UUID
	OwnerID      *uuid.UUID
	Title        string
	Value        float64
	Stage        string
	QuoteSentAt  *time.Time
	DealClosedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Client is a converted account.
type Client struct {
	ID              uuid.UUID
	OwnerID         *uuid.UUID
	Name            string
	Status          string
	LifetimeRevenue *float64
	// HealthScore is the last written engagement score, if any. It is a cache
	// and never an input to the calculations.
	HealthScore *int
	CreatedAt   time.Time
}

// Revenue returns LifetimeRevenue or 0 when unset.
func (c Client) Revenue() float64 {
	if c.LifetimeRevenue == nil {
		return 0
	}
	return *c.LifetimeRevenue
}

// Activity is an immutable touchpoint recorded against a lead or a client.
type Activity struct {
	ID        uuid.UUID
	LeadID    *uuid.UUID
	ClientID  *uuid.UUID
	Kind      string
	CreatedAt time.Time
}

// StageTransition is one append-only row of a lead's stage history.
type StageTransition struct {
	LeadID    uuid.UUID
	FromStage *string
	ToStage   string
	CreatedAt time.Time
}

// LeadFile is a document attached to a lead.
type LeadFile struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	FileName  string
	CreatedAt time.Time
}

// Project is delivery work for a client.
type Project struct {
	ID            uuid.UUID
	ClientID      uuid.UUID
	Name          string
	Status        string
	Value         float64
	StartDate     *time.Time
	CompletedDate *time.Time
	CreatedAt     time.Time
}

// LeadHistory bundles a lead with its related collections.
type LeadHistory struct {
	Lead        Lead
	Activities  []Activity
	Files       []LeadFile
	Transitions []StageTransition
}

// ClientHistory bundles a client with its related collections.
type ClientHistory struct {
	Client     Client
	Activities []Activity
	Projects   []Project
}
