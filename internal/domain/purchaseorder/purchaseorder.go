// Package purchaseorder is the PurchaseOrder aggregate: the commitment
// issued to the awarded supplier, and the artifact shipped to the ERP.
package purchaseorder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Lucasschwertz/procurement-core/internal/mmodel"
)

// Status enumerates PurchaseOrder lifecycle states.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusApproved           Status = "approved"
	StatusSentToErp          Status = "sent_to_erp"
	StatusErpAccepted        Status = "erp_accepted"
	StatusPartiallyReceived  Status = "partially_received"
	StatusReceived           Status = "received"
	StatusCancelled          Status = "cancelled"
	StatusErpError           Status = "erp_error"
)

// PurchaseOrder is the root aggregate shipped to the ERP. Once ExternalID
// is set the row is read-only except for ERP-driven status transitions
// (per spec §3) — direct commands must reject with ErpManagedReadonly.
type PurchaseOrder struct {
	ID           int64           `json:"id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	Number       string          `json:"number"`
	AwardID      *int64          `json:"award_id,omitempty"`
	SupplierName string          `json:"supplier_name"`
	Status       Status          `json:"status"`
	Currency     string          `json:"currency"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ErpLastError *string         `json:"erp_last_error,omitempty"`
	ExternalID   *string         `json:"external_id,omitempty"`
	Metadata     mmodel.Metadata `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsErpManaged reports whether the PO has already been pushed to the ERP,
// making it read-only to direct mutation commands.
func (p PurchaseOrder) IsErpManaged() bool {
	return p.ExternalID != nil
}

// Line is a purchase order line item, carried in the canonical ERP
// envelope (§6.2) as well as persisted locally.
type Line struct {
	ID           int64            `json:"id"`
	TenantID     uuid.UUID        `json:"tenant_id"`
	PurchaseOrderID int64         `json:"purchase_order_id"`
	LineNo       int              `json:"line_no"`
	ProductCode  *string          `json:"product_code,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Quantity     float64          `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	TotalPrice   *decimal.Decimal `json:"total_price,omitempty"`
}

// Repository is the tenant-scoped persistence port for the PurchaseOrder
// aggregate (C3).
type Repository interface {
	Create(ctx context.Context, po *PurchaseOrder, lines []Line) (*PurchaseOrder, []Line, error)
	Find(ctx context.Context, id int64) (*PurchaseOrder, error)
	FindLines(ctx context.Context, poID int64) ([]Line, error)
	List(ctx context.Context, limit int, cursor int64) ([]*PurchaseOrder, error)
	Update(ctx context.Context, po *PurchaseOrder) (*PurchaseOrder, error)
	UpsertByExternalID(ctx context.Context, po *PurchaseOrder) (*PurchaseOrder, error)
}
