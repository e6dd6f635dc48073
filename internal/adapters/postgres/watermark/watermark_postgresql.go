// Package watermark is the tenant-scoped postgres repository for
// IntegrationWatermark (C8).
package watermark

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/postgres"
	domain "github.com/Lucasschwertz/procurement-core/internal/domain/watermark"
	"github.com/Lucasschwertz/procurement-core/pkg/mpostgres"
)

const tableName = "integration_watermarks"

// Postgres is the Watermark repository implementation.
type Postgres struct {
	connection *mpostgres.Connection
	tenantID   uuid.UUID
}

// New returns a tenant-bound watermark repository, panicking immediately
// if tenantID is unset or the database is unreachable (C3).
func New(conn *mpostgres.Connection, tenantID uuid.UUID) *Postgres {
	postgres.RequireTenant(tenantID)

	r := &Postgres{connection: conn, tenantID: tenantID}

	if _, err := r.connection.GetDB(context.Background()); err != nil {
		panic("watermark: failed to connect database: " + err.Error())
	}

	return r
}

var _ domain.Repository = (*Postgres)(nil)

// Find returns the watermark for (tenantID, system, entity), or a
// zero-value Watermark (nil LastSuccessSourceUpdatedAt) when no row
// exists yet — Advances treats a nil watermark as "everything advances".
func (p *Postgres) Find(ctx context.Context, tenantID uuid.UUID, system, entity string) (domain.Watermark, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return domain.Watermark{}, err
	}

	w := domain.Watermark{TenantID: tenantID, System: system, Entity: entity}

	row := db.QueryRowContext(ctx, `
		SELECT last_success_source_updated_at, last_success_source_id, last_success_cursor
		FROM `+tableName+`
		WHERE tenant_id = $1 AND system = $2 AND entity = $3`, tenantID, system, entity)

	if err := row.Scan(&w.LastSuccessSourceUpdatedAt, &w.LastSuccessSourceID, &w.LastSuccessCursor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return w, nil
		}

		return domain.Watermark{}, err
	}

	return w, nil
}

// Upsert writes w, keyed by (tenant_id, system, entity) — the scheduler
// calls this only after a successful pull batch, per spec §4.8's
// monotonicity requirement.
func (p *Postgres) Upsert(ctx context.Context, w domain.Watermark) (domain.Watermark, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return domain.Watermark{}, err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO `+tableName+`
			(tenant_id, system, entity, last_success_source_updated_at, last_success_source_id, last_success_cursor)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, system, entity) DO UPDATE SET
			last_success_source_updated_at = EXCLUDED.last_success_source_updated_at,
			last_success_source_id = EXCLUDED.last_success_source_id,
			last_success_cursor = EXCLUDED.last_success_cursor`,
		w.TenantID, w.System, w.Entity, w.LastSuccessSourceUpdatedAt, w.LastSuccessSourceID, w.LastSuccessCursor)
	if err != nil {
		return domain.Watermark{}, err
	}

	return w, nil
}
