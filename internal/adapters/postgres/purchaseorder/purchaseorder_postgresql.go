// Package purchaseorder is the tenant-scoped postgres repository for the
// PurchaseOrder aggregate (C3).
package purchaseorder

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/postgres"
	domain "github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/mpostgres"
)

const (
	tableName = "purchase_orders"
	linesTbl  = "purchase_order_lines"
)

// Postgres is the PurchaseOrder repository implementation.
type Postgres struct {
	connection *mpostgres.Connection
	tenantID   uuid.UUID
}

// New returns a tenant-bound PurchaseOrder repository, panicking
// immediately if tenantID is unset or the database is unreachable (C3).
func New(conn *mpostgres.Connection, tenantID uuid.UUID) *Postgres {
	postgres.RequireTenant(tenantID)

	r := &Postgres{connection: conn, tenantID: tenantID}

	if _, err := r.connection.GetDB(context.Background()); err != nil {
		panic("purchaseorder: failed to connect database: " + err.Error())
	}

	return r
}

var _ domain.Repository = (*Postgres)(nil)

func entityName() string {
	return reflect.TypeOf(domain.PurchaseOrder{}).Name()
}

func notFound() error {
	return apperr.EntityNotFoundError{
		EntityType: entityName(),
		Code:       constant.ErrEntityNotFound.Error(),
		Title:      "Entity Not Found",
		Message:    "No purchase order was found matching the provided ID for this tenant.",
	}
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperr.ValidationError{
			EntityType: entityName(),
			Code:       constant.ErrValidation.Error(),
			Title:      "Constraint Violation",
			Message:    pgErr.Message,
			Err:        pgErr,
		}
	}

	return err
}

const selectCols = `id, tenant_id, number, award_id, supplier_name, status, currency, total_amount,
		erp_last_error, external_id, created_at, updated_at`

func scan(row interface{ Scan(...any) error }) (*domain.PurchaseOrder, error) {
	po := &domain.PurchaseOrder{}

	err := row.Scan(&po.ID, &po.TenantID, &po.Number, &po.AwardID, &po.SupplierName, &po.Status,
		&po.Currency, &po.TotalAmount, &po.ErpLastError, &po.ExternalID, &po.CreatedAt, &po.UpdatedAt)

	return po, err
}

// Create inserts a PurchaseOrder and its lines in one statement group.
// Callers must run this inside a transaction obtained via pkg/dbtx.
func (p *Postgres) Create(ctx context.Context, po *domain.PurchaseOrder, lines []domain.Line) (*domain.PurchaseOrder, []domain.Line, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, nil, err
	}

	po.TenantID = p.tenantID

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+tableName+`
			(tenant_id, number, award_id, supplier_name, status, currency, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		po.TenantID, po.Number, po.AwardID, po.SupplierName, po.Status, po.Currency, po.TotalAmount)

	if err := row.Scan(&po.ID, &po.CreatedAt, &po.UpdatedAt); err != nil {
		return nil, nil, mapPGError(err)
	}

	created := make([]domain.Line, 0, len(lines))

	for _, line := range lines {
		line.TenantID = p.tenantID
		line.PurchaseOrderID = po.ID

		lrow := db.QueryRowContext(ctx, `
			INSERT INTO `+linesTbl+`
				(tenant_id, purchase_order_id, line_no, product_code, description, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			line.TenantID, line.PurchaseOrderID, line.LineNo, line.ProductCode, line.Description,
			line.Quantity, line.UnitPrice, line.TotalPrice)

		if err := lrow.Scan(&line.ID); err != nil {
			return nil, nil, mapPGError(err)
		}

		created = append(created, line)
	}

	return po, created, nil
}

// Find retrieves a PurchaseOrder by id, scoped to tenant.
func (p *Postgres) Find(ctx context.Context, id int64) (*domain.PurchaseOrder, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	po, err := scan(db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM `+tableName+` WHERE id = $1 AND tenant_id = $2`, id, p.tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}

		return nil, err
	}

	return po, nil
}

// FindLines lists every line belonging to poID, scoped to tenant.
func (p *Postgres) FindLines(ctx context.Context, poID int64) ([]domain.Line, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, tenant_id, purchase_order_id, line_no, product_code, description, quantity, unit_price, total_price
		FROM `+linesTbl+`
		WHERE purchase_order_id = $1 AND tenant_id = $2
		ORDER BY line_no ASC`, poID, p.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Line

	for rows.Next() {
		var l domain.Line

		if err := rows.Scan(&l.ID, &l.TenantID, &l.PurchaseOrderID, &l.LineNo, &l.ProductCode,
			&l.Description, &l.Quantity, &l.UnitPrice, &l.TotalPrice); err != nil {
			return nil, err
		}

		out = append(out, l)
	}

	return out, rows.Err()
}

// List returns up to limit purchase orders ordered by id, scoped to
// tenant, paginated via a keyset cursor on id.
func (p *Postgres) List(ctx context.Context, limit int, cursor int64) ([]*domain.PurchaseOrder, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	q := sqrl.Select("id", "tenant_id", "number", "award_id", "supplier_name", "status", "currency",
		"total_amount", "erp_last_error", "external_id", "created_at", "updated_at").
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

	var out []*domain.PurchaseOrder

	for rows.Next() {
		po, err := scan(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, po)
	}

	return out, rows.Err()
}

// Update persists status/total/error mutations — the ERP outbox worker's
// success/failure callbacks and CancelPurchaseOrder both funnel through here.
func (p *Postgres) Update(ctx context.Context, po *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx, `
		UPDATE `+tableName+`
		SET status = $1, total_amount = $2, erp_last_error = $3, external_id = $4, updated_at = now()
		WHERE id = $5 AND tenant_id = $6`,
		po.Status, po.TotalAmount, po.ErpLastError, po.ExternalID, po.ID, p.tenantID)
	if err != nil {
		return nil, mapPGError(err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, notFound()
	}

	return p.Find(ctx, po.ID)
}

// UpsertByExternalID is the pull scheduler's idempotent upsert path for
// scope=purchase_order (C8), keyed by (tenant_id, external_id).
func (p *Postgres) UpsertByExternalID(ctx context.Context, po *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	po.TenantID = p.tenantID

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+tableName+`
			(tenant_id, number, award_id, supplier_name, status, currency, total_amount, erp_last_error, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, external_id) DO UPDATE SET
			status = EXCLUDED.status,
			total_amount = EXCLUDED.total_amount,
			erp_last_error = EXCLUDED.erp_last_error,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		po.TenantID, po.Number, po.AwardID, po.SupplierName, po.Status, po.Currency, po.TotalAmount,
		po.ErpLastError, po.ExternalID)

	if err := row.Scan(&po.ID, &po.CreatedAt, &po.UpdatedAt); err != nil {
		return nil, mapPGError(err)
	}

	return po, nil
}
