// Package purchaserequest is the PurchaseRequest aggregate: the intake
// document that starts the procurement lifecycle.
package purchaserequest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/internal/mmodel"
)

// Status enumerates PurchaseRequest lifecycle states.
type Status string

const (
	StatusPendingRfq         Status = "pending_rfq"
	StatusInRfq              Status = "in_rfq"
	StatusAwarded            Status = "awarded"
	StatusOrdered            Status = "ordered"
	StatusPartiallyReceived  Status = "partially_received"
	StatusReceived           Status = "received"
	StatusCancelled          Status = "cancelled"
)

// Priority enumerates urgency levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PurchaseRequest is the root intake aggregate. Once any ERP-origin field
// is non-nil the row is read-only in this system — mutations are rejected
// by C4 before any state change, never enforced implicitly by the
// repository layer.
type PurchaseRequest struct {
	ID          int64      `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Number      string     `json:"number"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	RequestedBy string     `json:"requested_by"`
	Department  string     `json:"department"`
	NeededAt    *time.Time `json:"needed_at,omitempty"`
	ExternalID  *string    `json:"external_id,omitempty"`
	ErpNumCot   *string    `json:"erp_num_cot,omitempty"`
	ErpNumPct   *string    `json:"erp_num_pct,omitempty"`
	ErpSentAt   *time.Time `json:"erp_sent_at,omitempty"`
	Metadata    mmodel.Metadata `json:"metadata,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsErpManaged reports whether any ERP-origin field is set, making the row
// read-only to direct mutation commands.
func (p PurchaseRequest) IsErpManaged() bool {
	return p.ExternalID != nil || p.ErpNumCot != nil || p.ErpNumPct != nil || p.ErpSentAt != nil
}

// Item is a PurchaseRequestItem belonging to a request.
type Item struct {
	ID            int64     `json:"id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	RequestID     int64     `json:"request_id"`
	LineNo        int       `json:"line_no"`
	Description   string    `json:"description"`
	Quantity      float64   `json:"quantity"`
	Uom           string    `json:"uom"`
	Category      *string   `json:"category,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Valid reports whether the item satisfies the invariants from §3:
// non-empty description and strictly positive quantity.
func (i Item) Valid() bool {
	return i.Description != "" && i.Quantity > 0
}

// Repository is the tenant-scoped persistence port for PurchaseRequest
// (C3). Every method is implicitly scoped to the tenant the repository
// was constructed with; no method accepts a tenant_id parameter because
// construction already bound one.
type Repository interface {
	Create(ctx context.Context, pr *PurchaseRequest, items []Item) (*PurchaseRequest, []Item, error)
	Find(ctx context.Context, id int64) (*PurchaseRequest, error)
	FindItems(ctx context.Context, requestID int64) ([]Item, error)
	FindItemsByIDs(ctx context.Context, ids []int64) ([]Item, error)
	List(ctx context.Context, limit int, cursor int64) ([]*PurchaseRequest, error)
	Update(ctx context.Context, pr *PurchaseRequest) (*PurchaseRequest, error)
	Delete(ctx context.Context, id int64) error
	UpsertByExternalID(ctx context.Context, pr *PurchaseRequest) (*PurchaseRequest, error)
}
