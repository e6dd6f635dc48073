// Package award is the Award aggregate: the decision record selecting a
// winning supplier for an Rfq.
package award

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/internal/mmodel"
)

// Status enumerates Award lifecycle states.
type Status string

const (
	StatusAwarded        Status = "awarded"
	StatusConvertedToPo  Status = "converted_to_po"
	StatusCancelled      Status = "cancelled"
)

// Award records a winning-supplier decision for an Rfq. An Rfq may have
// many Award rows over time (re-awards after cancellation); the latest one
// is authoritative. Neither Award nor PurchaseOrder owns the other — the
// cyclic reference (award.purchase_order_id / purchase_order.award_id) is
// resolved by two independent foreign keys, never a runtime object cycle.
type Award struct {
	ID              int64           `json:"id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	RfqID           int64           `json:"rfq_id"`
	SupplierName    string          `json:"supplier_name"`
	Status          Status          `json:"status"`
	Reason          string          `json:"reason"`
	PurchaseOrderID *int64          `json:"purchase_order_id,omitempty"`
	Metadata        mmodel.Metadata `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasPurchaseOrder reports whether a PurchaseOrder has already been
// created from this award — CreatePurchaseOrderFromAward rejects when
// true (see spec §4.4).
func (a Award) HasPurchaseOrder() bool {
	return a.PurchaseOrderID != nil
}

// Repository is the tenant-scoped persistence port for the Award
// aggregate (C3).
type Repository interface {
	Create(ctx context.Context, a *Award) (*Award, error)
	Find(ctx context.Context, id int64) (*Award, error)
	FindByRfq(ctx context.Context, rfqID int64) ([]*Award, error)
	FindLatestByRfq(ctx context.Context, rfqID int64) (*Award, error)
	Update(ctx context.Context, a *Award) (*Award, error)
}
