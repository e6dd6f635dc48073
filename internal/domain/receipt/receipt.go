// Package receipt is the Receipt aggregate: an ERP-origin record of goods
// physically received against a PurchaseOrder line, pulled in by the
// scope="receipt" scheduler cycle. Receipts are never created directly by
// a command in this system — they only ever arrive via UpsertByExternalID.
package receipt

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the normalized Receipt states this system
// recognizes, per spec §9 open question (b).
type Status string

const (
	StatusPending           Status = "pending"
	StatusPartiallyReceived Status = "partially_received"
	StatusReceived          Status = "received"
)

// NormalizeStatus coerces an arbitrary upstream status string to the
// closest member of Status, logging a warning (via the caller, which
// holds the logger) whenever coercion was required. ok=false signals
// that raw was not an exact match and the returned status is the
// coerced fallback (pending for anything unrecognized).
func NormalizeStatus(raw string) (status Status, ok bool) {
	switch raw {
	case string(StatusPending), string(StatusPartiallyReceived), string(StatusReceived):
		return Status(raw), true
	}

	switch raw {
	case "partial", "parcial", "partially received", "in_progress":
		return StatusPartiallyReceived, false
	case "done", "complete", "completed", "finalizado", "recebido":
		return StatusReceived, false
	default:
		return StatusPending, false
	}
}

// Receipt is a single ERP-origin receiving record against a PurchaseOrder
// line.
type Receipt struct {
	ID              int64     `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	PurchaseOrderID int64     `json:"purchase_order_id"`
	LineNo          int       `json:"line_no"`
	QuantityRecv    float64   `json:"quantity_received"`
	Status          Status    `json:"status"`
	ExternalID      string    `json:"external_id"`
	ReceivedAt      time.Time `json:"received_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Repository is the tenant-scoped persistence port for Receipt (C3/C8).
// There is no Create beyond UpsertByExternalID: receipts only ever enter
// the system via the ERP pull cycle.
type Repository interface {
	Find(ctx context.Context, id int64) (*Receipt, error)
	FindByPurchaseOrder(ctx context.Context, purchaseOrderID int64) ([]Receipt, error)
	UpsertByExternalID(ctx context.Context, r *Receipt) (*Receipt, error)
}
