// Package query implements the read-only side of the command surface:
// get/list per aggregate, process-step presentation, and status history.
// Unlike C4's command package, no method here runs inside a transaction:
// each repository call runs on its own against the primary pool that
// pkg/mpostgres.Connection.GetExecutor falls back to outside a transaction.
package query

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/award"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/internal/domain/receipt"
	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/internal/domain/watermark"
	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
)

// UseCase aggregates every tenant-scoped repository a query needs,
// mirroring C4's UseCase but with no *sql.DB — nothing here needs a
// transaction.
type UseCase struct {
	PurchaseRequestRepo purchaserequest.Repository
	RfqRepo             rfq.Repository
	AwardRepo           award.Repository
	PurchaseOrderRepo   purchaseorder.Repository
	StatusEventRepo     statusevent.Repository
	SyncRunRepo         syncrun.Repository
	WatermarkRepo       watermark.Repository
	ReceiptRepo         receipt.Repository

	Logger mlog.Logger
}

func (uc *UseCase) logger() mlog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}

	return mlog.NoneLogger{}
}

// ProcessSteps is a thin pass-through to flowpolicy.ProcessSteps,
// exposed here so C11 handlers never import internal/domain/flowpolicy
// directly for presentation concerns.
func ProcessSteps(stage flowpolicy.Stage) []flowpolicy.ProcessStep {
	return flowpolicy.ProcessSteps(stage)
}

func (uc *UseCase) statusHistory(ctx context.Context, entity statusevent.Entity, entityID int64) ([]statusevent.Event, error) {
	events, err := uc.StatusEventRepo.FindByEntity(ctx, entity, entityID)
	if err != nil {
		uc.logger().Errorf("status history for %s %d: %v", entity, entityID, err)

		return nil, err
	}

	return events, nil
}
