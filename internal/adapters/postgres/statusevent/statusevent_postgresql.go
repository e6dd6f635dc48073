// Package statusevent is the tenant-scoped, append-only postgres
// repository for the status event log (C10).
package statusevent

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/postgres"
	domain "github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/mpostgres"
)

const tableName = "status_events"

// Postgres is the status event log repository implementation.
type Postgres struct {
	connection *mpostgres.Connection
	tenantID   uuid.UUID
}

// New returns a tenant-bound status event repository, panicking
// immediately if tenantID is unset or the database is unreachable (C3).
func New(conn *mpostgres.Connection, tenantID uuid.UUID) *Postgres {
	postgres.RequireTenant(tenantID)

	r := &Postgres{connection: conn, tenantID: tenantID}

	if _, err := r.connection.GetDB(context.Background()); err != nil {
		panic("statusevent: failed to connect database: " + err.Error())
	}

	return r
}

var _ domain.Repository = (*Postgres)(nil)

// Append writes an immutable transition record. There is no Update path
// — every command that changes aggregate state appends exactly one row
// in the same transaction as the mutation (spec §4.10).
func (p *Postgres) Append(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	e.TenantID = p.tenantID

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+tableName+`
			(tenant_id, entity, entity_id, from_status, to_status, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, occurred_at`, e.TenantID, e.Entity, e.EntityID, e.FromStatus, e.ToStatus, e.Reason)

	if err := row.Scan(&e.ID, &e.OccurredAt); err != nil {
		return nil, err
	}

	return e, nil
}

// FindByEntity lists every recorded transition for a specific aggregate
// instance, scoped to tenant, oldest first.
func (p *Postgres) FindByEntity(ctx context.Context, entity domain.Entity, entityID int64) ([]domain.Event, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, tenant_id, entity, entity_id, from_status, to_status, reason, occurred_at
		FROM `+tableName+`
		WHERE entity = $1 AND entity_id = $2 AND tenant_id = $3
		ORDER BY id ASC`, entity, entityID, p.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// List returns up to limit events ordered by id, scoped to tenant,
// paginated via a keyset cursor on id — used by analytics projections
// consuming the critical-reason subset.
func (p *Postgres) List(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	q := sqrl.Select("id", "tenant_id", "entity", "entity_id", "from_status", "to_status", "reason", "occurred_at").
		From(tableName).
		Where(sqrl.Eq{"tenant_id": p.tenantID}).
		OrderBy("id ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(sqrl.Dollar)

	if cursor > 0 {
		q = q.Where(sqrl.Gt{"id": cursor})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]domain.Event, error) {
	var out []domain.Event

	for rows.Next() {
		var e domain.Event

		if err := rows.Scan(&e.ID, &e.TenantID, &e.Entity, &e.EntityID, &e.FromStatus, &e.ToStatus,
			&e.Reason, &e.OccurredAt); err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	return out, rows.Err()
}
