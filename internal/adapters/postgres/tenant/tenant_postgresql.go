// Package tenant is the one postgres repository in this module that is
// not tenant-scoped, by necessity (C3's own bootstrap problem): it is
// the repository that discovers and registers tenants in the first
// place. Grounded on the teacher's organization.postgresql.go upsert
// shape, simplified to the two operations internal/bootstrap needs.
package tenant

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	domain "github.com/Lucasschwertz/procurement-core/internal/domain/tenant"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/mpostgres"
)

const tableName = "tenants"

// Postgres is the Tenant repository implementation.
type Postgres struct {
	connection *mpostgres.Connection
}

// New returns a Tenant repository bound to conn. Unlike every other C3
// repository it takes no tenant id — there is nothing to scope yet.
func New(conn *mpostgres.Connection) *Postgres {
	return &Postgres{connection: conn}
}

var _ domain.Repository = (*Postgres)(nil)

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperr.ValidationError{
			EntityType: "Tenant",
			Code:       constant.ErrValidation.Error(),
			Title:      "Constraint Violation",
			Message:    pgErr.Message,
			Err:        pgErr,
		}
	}

	return err
}

// EnsureExists upserts id with name, matching the spec's "created lazily
// on first registration or seed" rule (§3). The conflict target is the
// primary key itself, since this is the one table with no tenant_id
// column to additionally scope the conflict on (C3's upsert convention).
func (r *Postgres) EnsureExists(ctx context.Context, id uuid.UUID, name string) (*domain.Tenant, error) {
	db, err := r.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+tableName+` (id, name, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (id) DO UPDATE SET updated_at = now()
		RETURNING id, name, created_at, updated_at`, id, name)

	var t domain.Tenant

	if err := row.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, mapPGError(err)
	}

	return &t, nil
}

// List returns every registered tenant, in creation order.
// internal/bootstrap calls this at startup and on its periodic tenant
// watch to decide which per-tenant Worker/Scheduler goroutines to start.
func (r *Postgres) List(ctx context.Context) ([]domain.Tenant, error) {
	db, err := r.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM `+tableName+` ORDER BY created_at ASC`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}
	defer rows.Close()

	var tenants []domain.Tenant

	for rows.Next() {
		var t domain.Tenant

		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}

		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}
