// Package statusevent is the append-only audit trail of every aggregate
// state transition (C10). Rows are never updated nor deleted.
package statusevent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entity enumerates the aggregates a StatusEvent can describe.
type Entity string

const (
	EntityPurchaseRequest Entity = "purchase_request"
	EntityRfq             Entity = "rfq"
	EntityAward           Entity = "award"
	EntityPurchaseOrder   Entity = "purchase_order"
	EntityReceipt         Entity = "receipt"
)

// Reason is the controlled vocabulary for why a transition happened.
// A subset is governance-sensitive ("critical") — cancellations, award,
// conversion to PO, and every po_push_* reason — consumed by analytics
// projections that count governance-sensitive actions.
type Reason string

const (
	ReasonRfqCreated         Reason = "rfq_created"
	ReasonSupplierInvited    Reason = "supplier_invited"
	ReasonInviteOpened       Reason = "invite_opened"
	ReasonInviteExpired      Reason = "invite_expired"
	ReasonSupplierQuoteRecv  Reason = "supplier_quote_received"
	ReasonProposalDeleted    Reason = "proposal_deleted"
	ReasonRfqAwarded         Reason = "rfq_awarded"
	ReasonAwardCreated       Reason = "award_created"
	ReasonAwardCancelled     Reason = "award_cancelled"
	ReasonPoCreatedFromAward Reason = "po_created_from_award"
	ReasonPoApproved         Reason = "po_approved"
	ReasonPoPushQueued       Reason = "po_push_queued"
	ReasonPoPushSucceeded    Reason = "po_push_succeeded"
	ReasonPoPushRetryStarted Reason = "po_push_retry_started"
	ReasonPoPushRejected     Reason = "po_push_rejected"
	ReasonRequestCancelled   Reason = "request_cancelled"
	ReasonRequestCreated     Reason = "request_created"
	ReasonRequestUpdated     Reason = "request_updated"
	ReasonRfqCancelled       Reason = "rfq_cancelled"
	ReasonOrderCancelled     Reason = "order_cancelled"
	ReasonOrderApproved      Reason = "order_approved"
	ReasonReceiptRecorded    Reason = "receipt_recorded"
	ReasonInviteCancelled    Reason = "invite_cancelled"
	ReasonInviteResent       Reason = "invite_resent"
	ReasonInviteSubmitted    Reason = "invite_submitted"
	ReasonQuoteDowngraded    Reason = "quote_downgraded"
	ReasonRfqClosed          Reason = "rfq_closed"
)

// critical mirrors spec §4.10's governance-sensitive subset.
var critical = map[Reason]bool{
	ReasonRequestCancelled:   true,
	ReasonRfqCancelled:       true,
	ReasonAwardCancelled:     true,
	ReasonOrderCancelled:     true,
	ReasonRfqAwarded:         true,
	ReasonAwardCreated:       true,
	ReasonPoCreatedFromAward: true,
	ReasonPoPushQueued:       true,
	ReasonPoPushSucceeded:    true,
	ReasonPoPushRetryStarted: true,
	ReasonPoPushRejected:     true,
}

// IsCritical reports whether reason belongs to the governance-sensitive
// subset analytics projections count.
func IsCritical(reason Reason) bool {
	return critical[reason]
}

// Event is a single immutable transition record.
type Event struct {
	ID           int64     `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Entity       Entity    `json:"entity"`
	EntityID     int64     `json:"entity_id"`
	FromStatus   *string   `json:"from_status,omitempty"`
	ToStatus     string    `json:"to_status"`
	Reason       Reason    `json:"reason"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Repository is the tenant-scoped, append-only persistence port for the
// status event log (C10). There is no Update or Delete: rows are
// immutable once appended.
type Repository interface {
	Append(ctx context.Context, e *Event) (*Event, error)
	FindByEntity(ctx context.Context, entity Entity, entityID int64) ([]Event, error)
	List(ctx context.Context, limit int, cursor int64) ([]Event, error)
}
