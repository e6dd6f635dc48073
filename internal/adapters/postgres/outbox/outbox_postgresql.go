// Package outbox is the tenant-scoped postgres repository for SyncRun
// (C5/C8), grounded on the teacher's components/transaction outbox
// adapter: a durable queue read with SELECT ... FOR UPDATE SKIP LOCKED so
// concurrent worker instances never double-claim the same row.
package outbox

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/postgres"
	domain "github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/mpostgres"
)

const tableName = "sync_runs"

// Postgres is the SyncRun repository implementation.
type Postgres struct {
	connection *mpostgres.Connection
	tenantID   uuid.UUID
}

// New returns a tenant-bound SyncRun repository, panicking immediately if
// tenantID is unset or the database is unreachable (C3).
func New(conn *mpostgres.Connection, tenantID uuid.UUID) *Postgres {
	postgres.RequireTenant(tenantID)

	r := &Postgres{connection: conn, tenantID: tenantID}

	if _, err := r.connection.GetDB(context.Background()); err != nil {
		panic("outbox: failed to connect database: " + err.Error())
	}

	return r
}

var _ domain.Repository = (*Postgres)(nil)

func notFound() error {
	return apperr.EntityNotFoundError{
		EntityType: "SyncRun",
		Code:       constant.ErrEntityNotFound.Error(),
		Title:      "Entity Not Found",
		Message:    "No sync run was found matching the provided ID for this tenant.",
	}
}

const selectCols = `id, tenant_id, scope, status, attempt, parent_sync_run_id, payload_ref,
		started_at, finished_at, duration_ms, records_in, records_upserted, records_failed,
		error_summary, error_details`

func scan(row interface{ Scan(...any) error }) (*domain.SyncRun, error) {
	r := &domain.SyncRun{}

	err := row.Scan(&r.ID, &r.TenantID, &r.Scope, &r.Status, &r.Attempt, &r.ParentSyncRunID, &r.PayloadRef,
		&r.StartedAt, &r.FinishedAt, &r.DurationMs, &r.RecordsIn, &r.RecordsUpserted, &r.RecordsFailed,
		&r.ErrorSummary, &r.ErrorDetails)

	return r, err
}

// Create inserts a new SyncRun row — EnqueueErpPush's outbox enqueue and
// the scheduler's pull-cycle start both funnel through here. Callers
// enforce the exactly-one-pending invariant with
// FindPendingOutboxByPurchaseOrder before calling Create.
func (p *Postgres) Create(ctx context.Context, r *domain.SyncRun) (*domain.SyncRun, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	r.TenantID = p.tenantID

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+tableName+`
			(tenant_id, scope, status, attempt, parent_sync_run_id, payload_ref, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		r.TenantID, r.Scope, r.Status, r.Attempt, r.ParentSyncRunID, r.PayloadRef, r.StartedAt)

	if err := row.Scan(&r.ID); err != nil {
		return nil, err
	}

	return r, nil
}

// Find retrieves a SyncRun by id, scoped to tenant.
func (p *Postgres) Find(ctx context.Context, id int64) (*domain.SyncRun, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	r, err := scan(db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM `+tableName+` WHERE id = $1 AND tenant_id = $2`, id, p.tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}

		return nil, err
	}

	return r, nil
}

// Update persists attempt/status/result mutations as the outbox worker
// or scheduler advances a run toward a terminal state.
func (p *Postgres) Update(ctx context.Context, r *domain.SyncRun) (*domain.SyncRun, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx, `
		UPDATE `+tableName+`
		SET status = $1, attempt = $2, payload_ref = $3, finished_at = $4, duration_ms = $5,
		    records_in = $6, records_upserted = $7, records_failed = $8,
		    error_summary = $9, error_details = $10
		WHERE id = $11 AND tenant_id = $12`,
		r.Status, r.Attempt, r.PayloadRef, r.FinishedAt, r.DurationMs,
		r.RecordsIn, r.RecordsUpserted, r.RecordsFailed, r.ErrorSummary, r.ErrorDetails, r.ID, p.tenantID)
	if err != nil {
		return nil, err
	}

	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, notFound()
	}

	return p.Find(ctx, r.ID)
}

// FindPendingOutboxByPurchaseOrder returns the single non-terminal
// scope="purchase_order" SyncRun for purchaseOrderID, if any — callers
// use this to enforce the exactly-one-pending invariant before enqueuing
// a new push (spec §4.5).
func (p *Postgres) FindPendingOutboxByPurchaseOrder(ctx context.Context, purchaseOrderID int64) (*domain.SyncRun, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	r, err := scan(db.QueryRowContext(ctx, `
		SELECT `+selectCols+`
		FROM `+tableName+`
		WHERE scope = $1 AND status = $2 AND tenant_id = $3
		  AND (payload_ref->>'purchase_order_id')::bigint = $4
		ORDER BY id DESC
		LIMIT 1`,
		domain.ScopePurchaseOrder, domain.StatusRunning, p.tenantID, purchaseOrderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return r, nil
}

// FindRunningByScope returns the single non-terminal SyncRun for scope,
// if any — the scheduler's cross-process overlap guard (spec §4.8).
func (p *Postgres) FindRunningByScope(ctx context.Context, scope domain.Scope) (*domain.SyncRun, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	r, err := scan(db.QueryRowContext(ctx, `
		SELECT `+selectCols+`
		FROM `+tableName+`
		WHERE scope = $1 AND status = $2 AND tenant_id = $3
		ORDER BY id DESC
		LIMIT 1`,
		scope, domain.StatusRunning, p.tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return r, nil
}

// ClaimNextOutboxRun leases the oldest due, running scope=purchase_order
// SyncRun whose encoded next_attempt_at has elapsed, using SELECT ...
// FOR UPDATE SKIP LOCKED so concurrent worker replicas never race on the
// same row (C7).
func (p *Postgres) ClaimNextOutboxRun(ctx context.Context, now time.Time) (*domain.SyncRun, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	r, err := scan(db.QueryRowContext(ctx, `
		SELECT `+selectCols+`
		FROM `+tableName+`
		WHERE scope = $1 AND status = $2 AND tenant_id = $3
		  AND (payload_ref->>'next_attempt_at')::timestamptz <= $4
		ORDER BY id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
		domain.ScopePurchaseOrder, domain.StatusRunning, p.tenantID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return r, nil
}

// List returns up to limit runs for scope ordered by id, scoped to
// tenant, paginated via a keyset cursor on id.
func (p *Postgres) List(ctx context.Context, scope domain.Scope, limit int, cursor int64) ([]*domain.SyncRun, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+selectCols+`
		FROM `+tableName+`
		WHERE scope = $1 AND tenant_id = $2 AND id > $3
		ORDER BY id ASC
		LIMIT $4`, scope, p.tenantID, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SyncRun

	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, rows.Err()
}
