// Package award is the tenant-scoped postgres repository for the Award
// aggregate (C3).
package award

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/postgres"
	domain "github.com/Lucasschwertz/procurement-core/internal/domain/award"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/mpostgres"
)

const tableName = "awards"

// Postgres is the Award repository implementation.
type Postgres struct {
	connection *mpostgres.Connection
	tenantID   uuid.UUID
}

// New returns a tenant-bound Award repository, panicking immediately if
// tenantID is unset or the database is unreachable (C3).
func New(conn *mpostgres.Connection, tenantID uuid.UUID) *Postgres {
	postgres.RequireTenant(tenantID)

	r := &Postgres{connection: conn, tenantID: tenantID}

	if _, err := r.connection.GetDB(context.Background()); err != nil {
		panic("award: failed to connect database: " + err.Error())
	}

	return r
}

var _ domain.Repository = (*Postgres)(nil)

func entityName() string {
	return reflect.TypeOf(domain.Award{}).Name()
}

func notFound() error {
	return apperr.EntityNotFoundError{
		EntityType: entityName(),
		Code:       constant.ErrEntityNotFound.Error(),
		Title:      "Entity Not Found",
		Message:    "No award was found matching the provided ID for this tenant.",
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

const selectCols = `id, tenant_id, rfq_id, supplier_name, status, reason, purchase_order_id, created_at, updated_at`

func scan(row interface{ Scan(...any) error }) (*domain.Award, error) {
	a := &domain.Award{}

	err := row.Scan(&a.ID, &a.TenantID, &a.RfqID, &a.SupplierName, &a.Status, &a.Reason,
		&a.PurchaseOrderID, &a.CreatedAt, &a.UpdatedAt)

	return a, err
}

// Create inserts a new Award row, typically following AwardRfq's
// decision (spec §4.5).
func (p *Postgres) Create(ctx context.Context, a *domain.Award) (*domain.Award, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	a.TenantID = p.tenantID

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+tableName+` (tenant_id, rfq_id, supplier_name, status, reason, purchase_order_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		a.TenantID, a.RfqID, a.SupplierName, a.Status, a.Reason, a.PurchaseOrderID)

	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, mapPGError(err)
	}

	return a, nil
}

// Find retrieves an Award by id, scoped to tenant.
func (p *Postgres) Find(ctx context.Context, id int64) (*domain.Award, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	a, err := scan(db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM `+tableName+` WHERE id = $1 AND tenant_id = $2`, id, p.tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}

		return nil, err
	}

	return a, nil
}

// FindByRfq lists every Award ever recorded for an Rfq, scoped to
// tenant — an Rfq may have many over time after re-awards.
func (p *Postgres) FindByRfq(ctx context.Context, rfqID int64) ([]*domain.Award, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+selectCols+`
		FROM `+tableName+`
		WHERE rfq_id = $1 AND tenant_id = $2
		ORDER BY id DESC`, rfqID, p.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Award

	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	return out, rows.Err()
}

// FindLatestByRfq returns the most recent Award for an Rfq, the one
// AwardRfq and CreatePurchaseOrderFromAward treat as authoritative.
func (p *Postgres) FindLatestByRfq(ctx context.Context, rfqID int64) (*domain.Award, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	a, err := scan(db.QueryRowContext(ctx, `
		SELECT `+selectCols+`
		FROM `+tableName+`
		WHERE rfq_id = $1 AND tenant_id = $2
		ORDER BY id DESC
		LIMIT 1`, rfqID, p.tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}

		return nil, err
	}

	return a, nil
}

// Update persists status/purchase_order_id mutations — CancelAward and
// CreatePurchaseOrderFromAward's linkage both funnel through here.
func (p *Postgres) Update(ctx context.Context, a *domain.Award) (*domain.Award, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx, `
		UPDATE `+tableName+`
		SET status = $1, reason = $2, purchase_order_id = $3, updated_at = now()
		WHERE id = $4 AND tenant_id = $5`,
		a.Status, a.Reason, a.PurchaseOrderID, a.ID, p.tenantID)
	if err != nil {
		return nil, mapPGError(err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, notFound()
	}

	return p.Find(ctx, a.ID)
}
