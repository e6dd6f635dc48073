// Package purchaserequest is the tenant-scoped postgres repository for
// the PurchaseRequest aggregate (C3), grounded on the teacher's
// organization.postgresql.go repository shape.
package purchaserequest

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/postgres"
	pr "github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/mpostgres"
)

const tableName = "purchase_requests"
const itemsTableName = "purchase_request_items"

// Postgres is the PurchaseRequest repository implementation.
type Postgres struct {
	connection *mpostgres.Connection
	tenantID   uuid.UUID
}

// New returns a tenant-bound PurchaseRequest repository. It panics
// immediately if tenantID is unset, or if the database is unreachable —
// a repository that can't prove it's usable must never be handed to a
// service (C3).
func New(conn *mpostgres.Connection, tenantID uuid.UUID) *Postgres {
	postgres.RequireTenant(tenantID)

	r := &Postgres{connection: conn, tenantID: tenantID}

	if _, err := r.connection.GetDB(context.Background()); err != nil {
		panic("purchaserequest: failed to connect database: " + err.Error())
	}

	return r
}

var _ pr.Repository = (*Postgres)(nil)

func entityTypeName() string {
	return reflect.TypeOf(pr.PurchaseRequest{}).Name()
}

func notFound() error {
	return apperr.EntityNotFoundError{
		EntityType: entityTypeName(),
		Code:       constant.ErrEntityNotFound.Error(),
		Title:      "Entity Not Found",
		Message:    "No purchase request was found matching the provided ID for this tenant.",
	}
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperr.ValidationError{
			EntityType: entityTypeName(),
			Code:       constant.ErrValidation.Error(),
			Title:      "Constraint Violation",
			Message:    pgErr.Message,
			Err:        pgErr,
		}
	}

	return err
}

// Create inserts pr and its items in one statement group. Callers must
// run this inside a transaction obtained via pkg/dbtx so the request and
// its items commit atomically.
func (r *Postgres) Create(ctx context.Context, req *pr.PurchaseRequest, items []pr.Item) (*pr.PurchaseRequest, []pr.Item, error) {
	db, err := r.connection.GetExecutor(ctx)
	if err != nil {
		return nil, nil, err
	}

	req.TenantID = r.tenantID

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+tableName+`
			(tenant_id, number, status, priority, requested_by, department, needed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		req.TenantID, req.Number, req.Status, req.Priority, req.RequestedBy, req.Department, req.NeededAt)

	if err := row.Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, nil, mapPGError(err)
	}

	created := make([]pr.Item, 0, len(items))

	for _, item := range items {
		item.TenantID = r.tenantID
		item.RequestID = req.ID

		irow := db.QueryRowContext(ctx, `
			INSERT INTO `+itemsTableName+`
				(tenant_id, request_id, line_no, description, quantity, uom, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`,
			item.TenantID, item.RequestID, item.LineNo, item.Description, item.Quantity, item.Uom, item.Category)

		if err := irow.Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, nil, mapPGError(err)
		}

		created = append(created, item)
	}

	return req, created, nil
}

// Find retrieves a PurchaseRequest by id, scoped to the repository's
// tenant.
func (r *Postgres) Find(ctx context.Context, id int64) (*pr.PurchaseRequest, error) {
	db, err := r.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	req := &pr.PurchaseRequest{}

	row := db.QueryRowContext(ctx, `
		SELECT id, tenant_id, number, status, priority, requested_by, department, needed_at,
		       external_id, erp_num_cot, erp_num_pct, erp_sent_at, created_at, updated_at
		FROM `+tableName+`
		WHERE id = $1 AND tenant_id = $2`, id, r.tenantID)

	if err := row.Scan(&req.ID, &req.TenantID, &req.Number, &req.Status, &req.Priority, &req.RequestedBy,
		&req.Department, &req.NeededAt, &req.ExternalID, &req.ErpNumCot, &req.ErpNumPct, &req.ErpSentAt,
		&req.CreatedAt, &req.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}

		return nil, err
	}

	return req, nil
}

// FindItems lists every item belonging to requestID, scoped to tenant.
func (r *Postgres) FindItems(ctx context.Context, requestID int64) ([]pr.Item, error) {
	db, err := r.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, tenant_id, request_id, line_no, description, quantity, uom, category, created_at, updated_at
		FROM `+itemsTableName+`
		WHERE request_id = $1 AND tenant_id = $2
		ORDER BY line_no ASC`, requestID, r.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

// FindItemsByIDs resolves a set of PurchaseRequestItem ids, scoped to
// tenant. Used by CreateRfq to resolve selected item ids into their
// parent requests.
func (r *Postgres) FindItemsByIDs(ctx context.Context, ids []int64) ([]pr.Item, error) {
	db, err := r.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	// ids travels as a single ANY($1) array parameter rather than a
	// squirrel-expanded IN(...) list, matching the teacher's
	// organization.postgresql.go id-set lookup.
	query := `SELECT id, tenant_id, request_id, line_no, description, quantity, uom, category, created_at, updated_at
		FROM ` + itemsTableName + ` WHERE id = ANY($1) AND tenant_id = $2`

	rows, err := db.QueryContext(ctx, query, pq.Array(ids), r.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]pr.Item, error) {
	var items []pr.Item

	for rows.Next() {
		var item pr.Item

		if err := rows.Scan(&item.ID, &item.TenantID, &item.RequestID, &item.LineNo, &item.Description,
			&item.Quantity, &item.Uom, &item.Category, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

// List returns up to limit requests ordered by id, scoped to tenant,
// paginated via a keyset cursor on id.
func (r *Postgres) List(ctx context.Context, limit int, cursor int64) ([]*pr.PurchaseRequest, error) {
	db, err := r.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	q := sqrl.Select(
		"id", "tenant_id", "number", "status", "priority", "requested_by", "department", "needed_at",
		"external_id", "erp_num_cot", "erp_num_pct", "erp_sent_at", "created_at", "updated_at").
		From(tableName).
		Where(sqrl.Eq{"tenant_id": r.tenantID}).
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

	var out []*pr.PurchaseRequest

	for rows.Next() {
		req := &pr.PurchaseRequest{}

		if err := rows.Scan(&req.ID, &req.TenantID, &req.Number, &req.Status, &req.Priority, &req.RequestedBy,
			&req.Department, &req.NeededAt, &req.ExternalID, &req.ErpNumCot, &req.ErpNumPct, &req.ErpSentAt,
			&req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}

		out = append(out, req)
	}

	return out, rows.Err()
}

// Update persists status/priority/requested_by/department/needed_at and
// the ERP-origin fields. updated_at is stamped by the statement itself.
func (r *Postgres) Update(ctx context.Context, req *pr.PurchaseRequest) (*pr.PurchaseRequest, error) {
	db, err := r.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx, `
		UPDATE `+tableName+`
		SET status = $1, priority = $2, department = $3, needed_at = $4,
		    external_id = $5, erp_num_cot = $6, erp_num_pct = $7, erp_sent_at = $8,
		    requested_by = $9, updated_at = now()
		WHERE id = $10 AND tenant_id = $11`,
		req.Status, req.Priority, req.Department, req.NeededAt,
		req.ExternalID, req.ErpNumCot, req.ErpNumPct, req.ErpSentAt, req.RequestedBy, req.ID, r.tenantID)
	if err != nil {
		return nil, mapPGError(err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, notFound()
	}

	return r.Find(ctx, req.ID)
}

// Delete removes a PurchaseRequest outright. No command calls it:
// CreatePurchaseRequest rejects items_required before inserting any row,
// and cancellation is a status transition, not a deletion.
func (r *Postgres) Delete(ctx context.Context, id int64) error {
	db, err := r.connection.GetExecutor(ctx)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM `+tableName+` WHERE id = $1 AND tenant_id = $2`, id, r.tenantID)
	if err != nil {
		return err
	}

	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return notFound()
	}

	return nil
}

// UpsertByExternalID is the pull scheduler's idempotent upsert path for
// scope=purchase_request (C8), keyed by (tenant_id, external_id).
func (r *Postgres) UpsertByExternalID(ctx context.Context, req *pr.PurchaseRequest) (*pr.PurchaseRequest, error) {
	db, err := r.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	req.TenantID = r.tenantID

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+tableName+`
			(tenant_id, number, status, priority, requested_by, department, needed_at,
			 external_id, erp_num_cot, erp_num_pct, erp_sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id, external_id) DO UPDATE SET
			status = EXCLUDED.status,
			erp_num_cot = EXCLUDED.erp_num_cot,
			erp_num_pct = EXCLUDED.erp_num_pct,
			erp_sent_at = EXCLUDED.erp_sent_at,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		req.TenantID, req.Number, req.Status, req.Priority, req.RequestedBy, req.Department, req.NeededAt,
		req.ExternalID, req.ErpNumCot, req.ErpNumPct, req.ErpSentAt)

	if err := row.Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, mapPGError(err)
	}

	return req, nil
}
