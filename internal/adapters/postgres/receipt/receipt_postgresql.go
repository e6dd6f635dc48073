// Package receipt is the tenant-scoped postgres repository for Receipt
// (C3), and the home of the receipt status normalization supplemented
// from original_source/ (spec §9 open question (b)).
package receipt

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/postgres"
	domain "github.com/Lucasschwertz/procurement-core/internal/domain/receipt"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
	"github.com/Lucasschwertz/procurement-core/pkg/mpostgres"
)

const tableName = "receipts"

// Postgres is the Receipt repository implementation.
type Postgres struct {
	connection *mpostgres.Connection
	tenantID   uuid.UUID
	logger     mlog.Logger
}

// New returns a tenant-bound Receipt repository, panicking immediately if
// tenantID is unset or the database is unreachable (C3).
func New(conn *mpostgres.Connection, tenantID uuid.UUID, logger mlog.Logger) *Postgres {
	postgres.RequireTenant(tenantID)

	r := &Postgres{connection: conn, tenantID: tenantID, logger: logger}

	if _, err := r.connection.GetDB(context.Background()); err != nil {
		panic("receipt: failed to connect database: " + err.Error())
	}

	return r
}

var _ domain.Repository = (*Postgres)(nil)

func notFound() error {
	return apperr.EntityNotFoundError{
		EntityType: "Receipt",
		Code:       constant.ErrEntityNotFound.Error(),
		Title:      "Entity Not Found",
		Message:    "No receipt was found matching the provided ID for this tenant.",
	}
}

const selectCols = `id, tenant_id, purchase_order_id, line_no, quantity_received, status,
		external_id, received_at, created_at, updated_at`

func scan(row interface{ Scan(...any) error }) (*domain.Receipt, error) {
	r := &domain.Receipt{}

	err := row.Scan(&r.ID, &r.TenantID, &r.PurchaseOrderID, &r.LineNo, &r.QuantityRecv, &r.Status,
		&r.ExternalID, &r.ReceivedAt, &r.CreatedAt, &r.UpdatedAt)

	return r, err
}

// Find retrieves a Receipt by id, scoped to tenant.
func (p *Postgres) Find(ctx context.Context, id int64) (*domain.Receipt, error) {
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

// FindByPurchaseOrder lists every receipt recorded against a
// PurchaseOrder, scoped to tenant — used to derive the aggregate
// partially_received/received rollup.
func (p *Postgres) FindByPurchaseOrder(ctx context.Context, purchaseOrderID int64) ([]domain.Receipt, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+selectCols+`
		FROM `+tableName+`
		WHERE purchase_order_id = $1 AND tenant_id = $2
		ORDER BY line_no ASC`, purchaseOrderID, p.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Receipt

	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *r)
	}

	return out, rows.Err()
}

// UpsertByExternalID is the scope="receipt" pull cycle's idempotent
// upsert path (C8), keyed by (tenant_id, external_id). r.Status is
// normalized here; a status outside the three recognized values is
// coerced and the coercion is logged, per spec §9 open question (b).
func (p *Postgres) UpsertByExternalID(ctx context.Context, r *domain.Receipt) (*domain.Receipt, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	if status, ok := domain.NormalizeStatus(string(r.Status)); !ok {
		p.logger.Warnf("receipt: coerced unrecognized status %q to %q for external_id %s", r.Status, status, r.ExternalID)
		r.Status = status
	}

	r.TenantID = p.tenantID

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+tableName+`
			(tenant_id, purchase_order_id, line_no, quantity_received, status, external_id, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, external_id) DO UPDATE SET
			quantity_received = EXCLUDED.quantity_received,
			status = EXCLUDED.status,
			received_at = EXCLUDED.received_at,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		r.TenantID, r.PurchaseOrderID, r.LineNo, r.QuantityRecv, r.Status, r.ExternalID, r.ReceivedAt)

	if err := row.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	return r, nil
}
