// Package syncrun is the SyncRun aggregate: one row per outbox attempt
// (C5) or pull cycle (C8). The outbox uses scope="purchase_order" and
// encodes the pending job inside PayloadRef; the scheduler's pull cycles
// use the scopes listed in spec §6.3, purchase_order among them.
package syncrun

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Scope enumerates the domains a SyncRun can describe.
type Scope string

const (
	ScopePurchaseOrder  Scope = "purchase_order"
	ScopeSupplier       Scope = "supplier"
	ScopePurchaseRequest Scope = "purchase_request"
	ScopeReceipt        Scope = "receipt"
	ScopeQuote          Scope = "quote"
	ScopeQuoteProcess   Scope = "quote_process"
	ScopeQuoteSupplier  Scope = "quote_supplier"
)

// Status enumerates SyncRun lifecycle states. The transition table below
// mirrors the outbox state machine grounded on the teacher's
// components/transaction outbox tests: a run is running until it either
// succeeds or fails, both terminal.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// transitions is the validated-transition table, grounded on the
// teacher's OutboxStatus.CanTransitionTo.
var transitions = map[Status][]Status{
	StatusRunning: {StatusSucceeded, StatusFailed},
}

// CanTransitionTo reports whether moving from s to next is a legal
// SyncRun transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// IsTerminal reports whether s is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// OutboxPayload is the shape of PayloadRef for scope="purchase_order",
// per spec §4.5.
type OutboxPayload struct {
	Kind              string          `json:"kind"`
	PurchaseOrderID   int64           `json:"purchase_order_id"`
	NextAttemptAt     time.Time       `json:"next_attempt_at"`
	CanonicalPO       json.RawMessage `json:"canonical_po"`
	DeadLetter        bool            `json:"dead_letter,omitempty"`
	DeadLetterReason  string          `json:"dead_letter_reason,omitempty"`
}

// SyncRun is one attempt at either an outbox push or a scheduler pull.
type SyncRun struct {
	ID                int64           `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	Scope             Scope           `json:"scope"`
	Status            Status          `json:"status"`
	Attempt           int             `json:"attempt"`
	ParentSyncRunID   *int64          `json:"parent_sync_run_id,omitempty"`
	PayloadRef        json.RawMessage `json:"payload_ref"`
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        *time.Time      `json:"finished_at,omitempty"`
	DurationMs        *int64          `json:"duration_ms,omitempty"`
	RecordsIn         int             `json:"records_in"`
	RecordsUpserted   int             `json:"records_upserted"`
	RecordsFailed     int             `json:"records_failed"`
	ErrorSummary      *string         `json:"error_summary,omitempty"`
	ErrorDetails      *string         `json:"error_details,omitempty"`
}

// DecodeOutboxPayload parses PayloadRef as an OutboxPayload. Callers must
// only invoke this for rows with Scope == ScopePurchaseOrder.
func (r SyncRun) DecodeOutboxPayload() (OutboxPayload, error) {
	var p OutboxPayload

	err := json.Unmarshal(r.PayloadRef, &p)

	return p, err
}

// maxErrorSummaryLen and maxErrorDetailsLen bound the scheduler's stored
// failure text, per spec §4.8.
const (
	maxErrorSummaryLen = 200
	maxErrorDetailsLen = 1000
)

// TruncateErrorSummary clamps s to the 200-char bound spec §4.8 requires.
func TruncateErrorSummary(s string) string {
	return truncate(s, maxErrorSummaryLen)
}

// TruncateErrorDetails clamps s to the 1000-char bound spec §4.8 requires.
func TruncateErrorDetails(s string) string {
	return truncate(s, maxErrorDetailsLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}

// Repository is the tenant-scoped persistence port for SyncRun (C5/C8).
// EnqueueOutbox and ClaimNextOutboxRun exist to enforce the
// exactly-one-pending-per-purchase-order invariant and the worker's
// SKIP LOCKED lease semantics respectively; everything else is generic
// read/write.
type Repository interface {
	Create(ctx context.Context, r *SyncRun) (*SyncRun, error)
	Find(ctx context.Context, id int64) (*SyncRun, error)
	Update(ctx context.Context, r *SyncRun) (*SyncRun, error)
	FindPendingOutboxByPurchaseOrder(ctx context.Context, purchaseOrderID int64) (*SyncRun, error)
	ClaimNextOutboxRun(ctx context.Context, now time.Time) (*SyncRun, error)
	// FindRunningByScope returns the single non-terminal SyncRun for scope,
	// if any — the scheduler's cross-process overlap guard (spec §4.8's
	// "skip if a prior SyncRun with the same (tenant, scope,
	// status='running') exists"), mirroring
	// FindPendingOutboxByPurchaseOrder's invariant for the pull cycle.
	FindRunningByScope(ctx context.Context, scope Scope) (*SyncRun, error)
	List(ctx context.Context, scope Scope, limit int, cursor int64) ([]*SyncRun, error)
}
