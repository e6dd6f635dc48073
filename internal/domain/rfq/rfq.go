// Package rfq is the Rfq aggregate: a request for quotation bundling
// purchase request line items for supplier pricing.
package rfq

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Lucasschwertz/procurement-core/internal/mmodel"
)

// Status enumerates Rfq lifecycle states.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusOpen              Status = "open"
	StatusCollectingQuotes  Status = "collecting_quotes"
	StatusClosed            Status = "closed"
	StatusAwarded           Status = "awarded"
	StatusCancelled         Status = "cancelled"
)

// Rfq is the request-for-quotation root aggregate.
type Rfq struct {
	ID           int64           `json:"id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	Title        string          `json:"title"`
	Status       Status          `json:"status"`
	CancelReason *string         `json:"cancel_reason,omitempty"`
	Metadata     mmodel.Metadata `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Item is an RfqItem: a denormalized snapshot of a PurchaseRequestItem at
// the time the Rfq was created, so later edits to the source item never
// retroactively change what suppliers were asked to price.
type Item struct {
	ID                    int64     `json:"id"`
	TenantID              uuid.UUID `json:"tenant_id"`
	RfqID                 int64     `json:"rfq_id"`
	PurchaseRequestItemID int64     `json:"purchase_request_item_id"`
	Description           string    `json:"description"`
	Quantity              float64   `json:"quantity"`
	Uom                   string    `json:"uom"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// ItemSupplier is an RfqItemSupplier many-to-many invitation binding,
// unique per (rfq_item_id, supplier_id, tenant_id).
type ItemSupplier struct {
	ID         int64     `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	RfqItemID  int64     `json:"rfq_item_id"`
	SupplierID int64     `json:"supplier_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// InviteStatus enumerates RfqSupplierInvite lifecycle states.
type InviteStatus string

const (
	InviteStatusPending   InviteStatus = "pending"
	InviteStatusOpened    InviteStatus = "opened"
	InviteStatusSubmitted InviteStatus = "submitted"
	InviteStatusExpired   InviteStatus = "expired"
	InviteStatusCancelled InviteStatus = "cancelled"
)

// SupplierInvite is an RfqSupplierInvite: the public token a supplier
// follows to open the portal and price their invited items. Expiry
// transitions are lazy — only checked on access, per spec §4.4.
type SupplierInvite struct {
	ID          int64        `json:"id"`
	TenantID    uuid.UUID    `json:"tenant_id"`
	RfqID       int64        `json:"rfq_id"`
	SupplierID  int64        `json:"supplier_id"`
	Token       string       `json:"-"`
	Status      InviteStatus `json:"status"`
	ExpiresAt   time.Time    `json:"expires_at"`
	OpenedAt    *time.Time   `json:"opened_at,omitempty"`
	SubmittedAt *time.Time   `json:"submitted_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsExpired reports whether the invite's expiry has lazily elapsed as of
// now, regardless of its persisted status.
func (s SupplierInvite) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Quote is the supplier's priced response to an Rfq, unique per
// (rfq, supplier, tenant).
type Quote struct {
	ID         int64     `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	RfqID      int64     `json:"rfq_id"`
	SupplierID int64     `json:"supplier_id"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// QuoteItem is a single priced line within a Quote, unique per
// (quote, rfq_item, tenant).
type QuoteItem struct {
	ID           int64           `json:"id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	QuoteID      int64           `json:"quote_id"`
	RfqItemID    int64           `json:"rfq_item_id"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LeadTimeDays *int            `json:"lead_time_days,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Valid reports whether the line satisfies the invariants from §4.4: no
// negative price, no negative lead time.
func (qi QuoteItem) Valid() bool {
	if qi.UnitPrice.IsNegative() {
		return false
	}

	return qi.LeadTimeDays == nil || *qi.LeadTimeDays >= 0
}

// Repository is the tenant-scoped persistence port for the Rfq aggregate
// and everything hanging off it (C3): items, item-supplier invitations,
// supplier invites, quotes and quote items.
type Repository interface {
	Create(ctx context.Context, r *Rfq, items []Item) (*Rfq, []Item, error)
	Find(ctx context.Context, id int64) (*Rfq, error)
	FindItems(ctx context.Context, rfqID int64) ([]Item, error)
	Update(ctx context.Context, r *Rfq) (*Rfq, error)

	InviteSuppliers(ctx context.Context, links []ItemSupplier, invites []SupplierInvite) ([]SupplierInvite, error)
	FindInvite(ctx context.Context, id int64) (*SupplierInvite, error)
	FindInviteByToken(ctx context.Context, token string) (*SupplierInvite, error)
	FindInvitesByRfq(ctx context.Context, rfqID int64) ([]SupplierInvite, error)
	UpdateInvite(ctx context.Context, invite *SupplierInvite) (*SupplierInvite, error)
	FindInvitedItemIDs(ctx context.Context, rfqID, supplierID int64) ([]int64, error)

	SaveQuote(ctx context.Context, q *Quote, items []QuoteItem) (*Quote, []QuoteItem, error)
	FindQuote(ctx context.Context, id int64) (*Quote, error)
	FindQuoteItems(ctx context.Context, quoteID int64) ([]QuoteItem, error)
	FindQuotesByRfq(ctx context.Context, rfqID int64) ([]Quote, error)
	FindQuoteBySupplier(ctx context.Context, rfqID, supplierID int64) (*Quote, error)
	DeleteQuote(ctx context.Context, id int64) error
}
