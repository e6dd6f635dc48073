package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/internal/domain/watermark"
)

// GetSyncRun resolves a single SyncRun by id — used to poll the status
// of an enqueued ERP push or a scheduler pull.
func (uc *UseCase) GetSyncRun(ctx context.Context, id int64) (*syncrun.SyncRun, error) {
	return uc.SyncRunRepo.Find(ctx, id)
}

// ListSyncRuns returns a keyset page of SyncRuns for a scope, scoped to
// tenant — the operator-facing outbox/scheduler activity feed.
func (uc *UseCase) ListSyncRuns(ctx context.Context, scope syncrun.Scope, limit int, cursor int64) ([]*syncrun.SyncRun, error) {
	return uc.SyncRunRepo.List(ctx, scope, limit, cursor)
}

// GetWatermark resolves the current pull watermark for a (system, entity)
// pair, so an operator can see how far behind the last successful pull
// cycle is.
func (uc *UseCase) GetWatermark(ctx context.Context, tenantID uuid.UUID, system, entity string) (watermark.Watermark, error) {
	return uc.WatermarkRepo.Find(ctx, tenantID, system, entity)
}
