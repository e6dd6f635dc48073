// Package tenant defines the workspace identity every other row in the
// system is scoped to.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Tenant is a logically isolated customer workspace. It is created lazily
// on first registration or seed — there is no tenant-creation command in
// this module's surface, only a lookup-or-create at the edge.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// Repository is the one repository in this module not constructed with a
// tenant binding, by necessity — it is the thing that discovers tenants.
// internal/bootstrap uses it to (a) lazily register a tenant the first
// time a request or seed names it, and (b) enumerate every known tenant
// so it can start one C7 Worker and one C8 Scheduler per tenant.
type Repository interface {
	EnsureExists(ctx context.Context, id uuid.UUID, name string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
}
