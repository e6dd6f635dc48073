// Package watermark is the IntegrationWatermark aggregate: the highest
// (updated_at, source_id) pair successfully ingested for a
// (tenant, system, entity) triple, keyed as the primary key itself.
package watermark

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Watermark is updated only after a successful pull batch; empty batches
// never move it (spec §4.8, testable property 11).
type Watermark struct {
	TenantID                uuid.UUID `json:"tenant_id"`
	System                  string    `json:"system"`
	Entity                  string    `json:"entity"`
	LastSuccessSourceUpdatedAt *time.Time `json:"last_success_source_updated_at,omitempty"`
	LastSuccessSourceID     *string   `json:"last_success_source_id,omitempty"`
	LastSuccessCursor       *string   `json:"last_success_cursor,omitempty"`
}

// Advances reports whether candidate (updatedAt, sourceID) is strictly
// greater, lexicographically, than the currently stored watermark —
// required before Advance may be called, to preserve monotonicity
// (testable property 11).
func (w Watermark) Advances(updatedAt time.Time, sourceID string) bool {
	if w.LastSuccessSourceUpdatedAt == nil {
		return true
	}

	if updatedAt.After(*w.LastSuccessSourceUpdatedAt) {
		return true
	}

	if updatedAt.Equal(*w.LastSuccessSourceUpdatedAt) {
		return w.LastSuccessSourceID == nil || sourceID > *w.LastSuccessSourceID
	}

	return false
}

// Advance returns a copy of w moved to (updatedAt, sourceID, cursor).
// Callers must check Advances first.
func (w Watermark) Advance(updatedAt time.Time, sourceID string, cursor *string) Watermark {
	next := w
	next.LastSuccessSourceUpdatedAt = &updatedAt
	next.LastSuccessSourceID = &sourceID
	next.LastSuccessCursor = cursor

	return next
}

// Repository is the tenant-scoped persistence port for Watermark (C8).
// Find returns the zero-value Watermark with LastSuccessSourceUpdatedAt
// nil when no row exists yet for the (tenant, system, entity) triple —
// Advances treats that as "everything advances".
type Repository interface {
	Find(ctx context.Context, tenantID uuid.UUID, system, entity string) (Watermark, error)
	Upsert(ctx context.Context, w Watermark) (Watermark, error)
}
