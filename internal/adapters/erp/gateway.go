// Package erp declares the pluggable ERP gateway contract (C9) that C7's
// outbox worker and C8's pull scheduler push through and pull from.
// Concrete adapters (mock, httpclient) live in subpackages so
// none of them drag the others' dependencies into a binary that doesn't
// need them.
package erp

import (
	"context"
	"time"

	"github.com/Lucasschwertz/procurement-core/internal/domain/erpenvelope"
)

// PushResult is what a successful push returns: the ERP's own identifier
// for the order, stamped back onto the local PurchaseOrder as ExternalID.
type PushResult struct {
	ExternalID string
	AcceptedAt time.Time
}

// PulledRecord is one row of a scope's incremental pull batch (C8),
// carrying the fields watermark.Watermark.Advances needs plus the raw
// upstream payload for UpsertByExternalID to decode per-scope.
type PulledRecord struct {
	ExternalID string
	UpdatedAt  time.Time
	Raw        []byte
}

// Gateway is the contract every ERP integration point must satisfy.
// PushPurchaseOrder is definitive-vs-transient per spec's Open Question
// (a): implementations classify failures via apperr.IntegrationError's
// Definitive flag rather than leaving that decision to the caller.
//
// Pull takes the scope name (syncrun.Scope's string form) rather than a
// method per entity, since C8 iterates every configured (tenant, scope)
// pair through the exact same cycle regardless of which entity it names.
type Gateway interface {
	PushPurchaseOrder(ctx context.Context, envelope erpenvelope.Envelope) (PushResult, error)
	Pull(ctx context.Context, scope string, since time.Time, sinceID string) ([]PulledRecord, string, error)
}
