// Package rfq is the tenant-scoped postgres repository for the Rfq
// aggregate and everything hanging off it (C3), grounded on the
// teacher's organization.postgresql.go repository shape.
package rfq

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/postgres"
	domain "github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/mpostgres"
)

const (
	tableName        = "rfqs"
	itemsTable       = "rfq_items"
	itemSupplierTbl  = "rfq_item_suppliers"
	invitesTable     = "rfq_supplier_invites"
	quotesTable      = "rfq_quotes"
	quoteItemsTable  = "rfq_quote_items"
)

// Postgres is the Rfq repository implementation.
type Postgres struct {
	connection *mpostgres.Connection
	tenantID   uuid.UUID
}

// New returns a tenant-bound Rfq repository, panicking immediately if
// tenantID is unset or the database is unreachable (C3).
func New(conn *mpostgres.Connection, tenantID uuid.UUID) *Postgres {
	postgres.RequireTenant(tenantID)

	r := &Postgres{connection: conn, tenantID: tenantID}

	if _, err := r.connection.GetDB(context.Background()); err != nil {
		panic("rfq: failed to connect database: " + err.Error())
	}

	return r
}

var _ domain.Repository = (*Postgres)(nil)

func notFound(entity string) error {
	return apperr.EntityNotFoundError{
		EntityType: entity,
		Code:       constant.ErrEntityNotFound.Error(),
		Title:      "Entity Not Found",
		Message:    "No " + entity + " was found matching the provided ID for this tenant.",
	}
}

func mapPGError(entity string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperr.ValidationError{
			EntityType: entity,
			Code:       constant.ErrValidation.Error(),
			Title:      "Constraint Violation",
			Message:    pgErr.Message,
			Err:        pgErr,
		}
	}

	return err
}

func typeName(v any) string {
	return reflect.TypeOf(v).Name()
}

// Create inserts r and its items. Callers must run this inside a
// transaction obtained via pkg/dbtx.
func (p *Postgres) Create(ctx context.Context, r *domain.Rfq, items []domain.Item) (*domain.Rfq, []domain.Item, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, nil, err
	}

	r.TenantID = p.tenantID

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+tableName+` (tenant_id, title, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`, r.TenantID, r.Title, r.Status)

	if err := row.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, nil, mapPGError(typeName(domain.Rfq{}), err)
	}

	created := make([]domain.Item, 0, len(items))

	for _, item := range items {
		item.TenantID = p.tenantID
		item.RfqID = r.ID

		irow := db.QueryRowContext(ctx, `
			INSERT INTO `+itemsTable+`
				(tenant_id, rfq_id, purchase_request_item_id, description, quantity, uom)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at`,
			item.TenantID, item.RfqID, item.PurchaseRequestItemID, item.Description, item.Quantity, item.Uom)

		if err := irow.Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, nil, mapPGError(typeName(domain.Item{}), err)
		}

		created = append(created, item)
	}

	return r, created, nil
}

// Find retrieves an Rfq by id, scoped to tenant.
func (p *Postgres) Find(ctx context.Context, id int64) (*domain.Rfq, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	r := &domain.Rfq{}

	row := db.QueryRowContext(ctx, `
		SELECT id, tenant_id, title, status, cancel_reason, created_at, updated_at
		FROM `+tableName+`
		WHERE id = $1 AND tenant_id = $2`, id, p.tenantID)

	if err := row.Scan(&r.ID, &r.TenantID, &r.Title, &r.Status, &r.CancelReason, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(typeName(domain.Rfq{}))
		}

		return nil, err
	}

	return r, nil
}

// FindItems lists every item belonging to rfqID, scoped to tenant.
func (p *Postgres) FindItems(ctx context.Context, rfqID int64) ([]domain.Item, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, tenant_id, rfq_id, purchase_request_item_id, description, quantity, uom, created_at, updated_at
		FROM `+itemsTable+`
		WHERE rfq_id = $1 AND tenant_id = $2
		ORDER BY id ASC`, rfqID, p.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item

	for rows.Next() {
		var item domain.Item

		if err := rows.Scan(&item.ID, &item.TenantID, &item.RfqID, &item.PurchaseRequestItemID,
			&item.Description, &item.Quantity, &item.Uom, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

// Update persists status/cancel_reason mutations.
func (p *Postgres) Update(ctx context.Context, r *domain.Rfq) (*domain.Rfq, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx, `
		UPDATE `+tableName+`
		SET status = $1, cancel_reason = $2, updated_at = now()
		WHERE id = $3 AND tenant_id = $4`, r.Status, r.CancelReason, r.ID, p.tenantID)
	if err != nil {
		return nil, mapPGError(typeName(domain.Rfq{}), err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, notFound(typeName(domain.Rfq{}))
	}

	return p.Find(ctx, r.ID)
}

// InviteSuppliers writes the rfq_item_suppliers links and the supplier
// invite rows in one call, mirroring InviteSuppliers' bulk-insert needs.
func (p *Postgres) InviteSuppliers(ctx context.Context, links []domain.ItemSupplier, invites []domain.SupplierInvite) ([]domain.SupplierInvite, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	for _, link := range links {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO `+itemSupplierTbl+` (tenant_id, rfq_item_id, supplier_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id, rfq_item_id, supplier_id) DO NOTHING`,
			p.tenantID, link.RfqItemID, link.SupplierID); err != nil {
			return nil, mapPGError(typeName(domain.ItemSupplier{}), err)
		}
	}

	created := make([]domain.SupplierInvite, 0, len(invites))

	for _, inv := range invites {
		inv.TenantID = p.tenantID

		row := db.QueryRowContext(ctx, `
			INSERT INTO `+invitesTable+`
				(tenant_id, rfq_id, supplier_id, token, status, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at`,
			inv.TenantID, inv.RfqID, inv.SupplierID, inv.Token, inv.Status, inv.ExpiresAt)

		if err := row.Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, mapPGError(typeName(domain.SupplierInvite{}), err)
		}

		created = append(created, inv)
	}

	return created, nil
}

func scanInvite(row interface{ Scan(...any) error }) (*domain.SupplierInvite, error) {
	inv := &domain.SupplierInvite{}

	err := row.Scan(&inv.ID, &inv.TenantID, &inv.RfqID, &inv.SupplierID, &inv.Token, &inv.Status,
		&inv.ExpiresAt, &inv.OpenedAt, &inv.SubmittedAt, &inv.CreatedAt, &inv.UpdatedAt)

	return inv, err
}

const inviteSelect = `
	SELECT id, tenant_id, rfq_id, supplier_id, token, status, expires_at, opened_at, submitted_at, created_at, updated_at
	FROM ` + invitesTable

// FindInvite retrieves a SupplierInvite by id, scoped to tenant.
func (p *Postgres) FindInvite(ctx context.Context, id int64) (*domain.SupplierInvite, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := scanInvite(db.QueryRowContext(ctx, inviteSelect+` WHERE id = $1 AND tenant_id = $2`, id, p.tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(typeName(domain.SupplierInvite{}))
		}

		return nil, err
	}

	return inv, nil
}

// FindInviteByToken resolves the public portal token a supplier follows.
func (p *Postgres) FindInviteByToken(ctx context.Context, token string) (*domain.SupplierInvite, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := scanInvite(db.QueryRowContext(ctx, inviteSelect+` WHERE token = $1 AND tenant_id = $2`, token, p.tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(typeName(domain.SupplierInvite{}))
		}

		return nil, err
	}

	return inv, nil
}

// FindInvitesByRfq lists every invite for an Rfq, scoped to tenant.
func (p *Postgres) FindInvitesByRfq(ctx context.Context, rfqID int64) ([]domain.SupplierInvite, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, inviteSelect+` WHERE rfq_id = $1 AND tenant_id = $2 ORDER BY id ASC`, rfqID, p.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SupplierInvite

	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *inv)
	}

	return out, rows.Err()
}

// UpdateInvite persists status/token/expires_at/opened_at/submitted_at
// mutations — including the lazy expiry transition applied on access
// (spec §4.4) and the fresh token ResendInvite issues.
func (p *Postgres) UpdateInvite(ctx context.Context, inv *domain.SupplierInvite) (*domain.SupplierInvite, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx, `
		UPDATE `+invitesTable+`
		SET status = $1, token = $2, expires_at = $3, opened_at = $4, submitted_at = $5, updated_at = now()
		WHERE id = $6 AND tenant_id = $7`,
		inv.Status, inv.Token, inv.ExpiresAt, inv.OpenedAt, inv.SubmittedAt, inv.ID, p.tenantID)
	if err != nil {
		return nil, mapPGError(typeName(domain.SupplierInvite{}), err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, notFound(typeName(domain.SupplierInvite{}))
	}

	return p.FindInvite(ctx, inv.ID)
}

// SaveQuote upserts a supplier's Quote and its line items in one call —
// SubmitSupplierQuote and SaveSupplierQuote both funnel through here,
// the latter allowing partial/draft saves before submission.
func (p *Postgres) SaveQuote(ctx context.Context, q *domain.Quote, items []domain.QuoteItem) (*domain.Quote, []domain.QuoteItem, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, nil, err
	}

	q.TenantID = p.tenantID

	row := db.QueryRowContext(ctx, `
		INSERT INTO `+quotesTable+` (tenant_id, rfq_id, supplier_id, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, rfq_id, supplier_id) DO UPDATE SET
			currency = EXCLUDED.currency, status = EXCLUDED.status, updated_at = now()
		RETURNING id, created_at, updated_at`,
		q.TenantID, q.RfqID, q.SupplierID, q.Currency, q.Status)

	if err := row.Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, nil, mapPGError(typeName(domain.Quote{}), err)
	}

	saved := make([]domain.QuoteItem, 0, len(items))

	for _, item := range items {
		item.TenantID = p.tenantID
		item.QuoteID = q.ID

		irow := db.QueryRowContext(ctx, `
			INSERT INTO `+quoteItemsTable+`
				(tenant_id, quote_id, rfq_item_id, unit_price, lead_time_days)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (tenant_id, quote_id, rfq_item_id) DO UPDATE SET
				unit_price = EXCLUDED.unit_price, lead_time_days = EXCLUDED.lead_time_days, updated_at = now()
			RETURNING id, created_at, updated_at`,
			item.TenantID, item.QuoteID, item.RfqItemID, item.UnitPrice, item.LeadTimeDays)

		if err := irow.Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, nil, mapPGError(typeName(domain.QuoteItem{}), err)
		}

		saved = append(saved, item)
	}

	return q, saved, nil
}

// FindQuote retrieves a Quote by id, scoped to tenant.
func (p *Postgres) FindQuote(ctx context.Context, id int64) (*domain.Quote, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	q := &domain.Quote{}

	row := db.QueryRowContext(ctx, `
		SELECT id, tenant_id, rfq_id, supplier_id, currency, status, created_at, updated_at
		FROM `+quotesTable+`
		WHERE id = $1 AND tenant_id = $2`, id, p.tenantID)

	if err := row.Scan(&q.ID, &q.TenantID, &q.RfqID, &q.SupplierID, &q.Currency, &q.Status, &q.CreatedAt, &q.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(typeName(domain.Quote{}))
		}

		return nil, err
	}

	return q, nil
}

// FindQuoteItems lists every priced line belonging to quoteID, scoped to
// tenant.
func (p *Postgres) FindQuoteItems(ctx context.Context, quoteID int64) ([]domain.QuoteItem, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, tenant_id, quote_id, rfq_item_id, unit_price, lead_time_days, created_at, updated_at
		FROM `+quoteItemsTable+`
		WHERE quote_id = $1 AND tenant_id = $2
		ORDER BY id ASC`, quoteID, p.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.QuoteItem

	for rows.Next() {
		var item domain.QuoteItem

		if err := rows.Scan(&item.ID, &item.TenantID, &item.QuoteID, &item.RfqItemID, &item.UnitPrice,
			&item.LeadTimeDays, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

// FindQuotesByRfq lists every supplier quote submitted against an Rfq,
// scoped to tenant — AwardRfq's comparison set.
func (p *Postgres) FindQuotesByRfq(ctx context.Context, rfqID int64) ([]domain.Quote, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "tenant_id", "rfq_id", "supplier_id", "currency", "status", "created_at", "updated_at").
		From(quotesTable).
		Where(sqrl.Eq{"rfq_id": rfqID, "tenant_id": p.tenantID}).
		OrderBy("id ASC").
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Quote

	for rows.Next() {
		var q domain.Quote

		if err := rows.Scan(&q.ID, &q.TenantID, &q.RfqID, &q.SupplierID, &q.Currency, &q.Status, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}

		out = append(out, q)
	}

	return out, rows.Err()
}

// FindQuoteBySupplier looks up the quote a supplier has (if any) against
// an Rfq, scoped to tenant — SaveQuote's callers use this to decide
// whether they're creating or amending a proposal.
func (p *Postgres) FindQuoteBySupplier(ctx context.Context, rfqID, supplierID int64) (*domain.Quote, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	q := &domain.Quote{}

	row := db.QueryRowContext(ctx, `
		SELECT id, tenant_id, rfq_id, supplier_id, currency, status, created_at, updated_at
		FROM `+quotesTable+`
		WHERE rfq_id = $1 AND supplier_id = $2 AND tenant_id = $3`, rfqID, supplierID, p.tenantID)

	if err := row.Scan(&q.ID, &q.TenantID, &q.RfqID, &q.SupplierID, &q.Currency, &q.Status, &q.CreatedAt, &q.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(typeName(domain.Quote{}))
		}

		return nil, err
	}

	return q, nil
}

// FindInvitedItemIDs lists the RfqItem ids a supplier was invited to
// price on an Rfq, via the rfq_item_suppliers link table — the
// intersection set SubmitSupplierQuote and SaveSupplierQuote both enforce
// against.
func (p *Postgres) FindInvitedItemIDs(ctx context.Context, rfqID, supplierID int64) ([]int64, error) {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT s.rfq_item_id
		FROM `+itemSupplierTbl+` s
		JOIN `+itemsTable+` i ON i.id = s.rfq_item_id AND i.tenant_id = s.tenant_id
		WHERE i.rfq_id = $1 AND s.supplier_id = $2 AND s.tenant_id = $3`, rfqID, supplierID, p.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// DeleteQuote removes a supplier's proposal outright — DeleteSupplierProposal
// is one of the critical actions gated by C2.
func (p *Postgres) DeleteQuote(ctx context.Context, id int64) error {
	db, err := p.connection.GetExecutor(ctx)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM `+quotesTable+` WHERE id = $1 AND tenant_id = $2`, id, p.tenantID)
	if err != nil {
		return err
	}

	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return notFound(typeName(domain.Quote{}))
	}

	return nil
}
