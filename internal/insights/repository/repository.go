// Package repository reads the CRM records the insights engine computes over.
// Every query is tenant scoped; the optional owner restricts non-manager
// users to the records they own.
package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

// Scope is the visibility a caller has on the record store.
type Scope struct {
	OrganizationID uuid.UUID
	// OwnerID limits results to records owned by this user. Nil means the
	// whole organization.
	OwnerID *uuid.UUID
}

// OrganizationScope returns a scope that sees every record of the tenant.
func OrganizationScope(organizationID uuid.UUID) Scope {
	return Scope{OrganizationID: organizationID}
}

// OwnerScope returns a scope restricted to records owned by userID.
func OwnerScope(organizationID, userID uuid.UUID) Scope {
	return Scope{OrganizationID: organizationID, OwnerID: &userID}
}

// IsOrganizationWide reports whether the scope has no owner restriction.
func (s Scope) IsOrganizationWide() bool {
	return s.OwnerID == nil
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}
