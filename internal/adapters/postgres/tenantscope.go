// Package postgres holds the shared tenant-scoping guard every
// per-aggregate repository under internal/adapters/postgres/* is built
// on (C3): constructing a repository without a tenant fails immediately,
// as a programming error rather than a user error, and every query the
// repository builds carries `WHERE tenant_id = ?` automatically.
package postgres

import "github.com/google/uuid"

// RequireTenant panics when tenantID is the zero UUID. Every repository
// constructor in this module calls this before returning, so a caller
// that forgets to bind a tenant discovers the mistake at construction
// time, never at query time.
func RequireTenant(tenantID uuid.UUID) {
	if tenantID == uuid.Nil {
		panic("postgres: repository constructed without a tenant_id binding")
	}
}
