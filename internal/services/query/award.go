package query

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/award"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
)

// GetAward resolves a single Award by id.
func (uc *UseCase) GetAward(ctx context.Context, id int64) (*award.Award, error) {
	return uc.AwardRepo.Find(ctx, id)
}

// ListAwardsForRfq returns every Award ever recorded against an Rfq,
// oldest first — an Rfq can carry more than one across re-award cycles.
func (uc *UseCase) ListAwardsForRfq(ctx context.Context, rfqID int64) ([]*award.Award, error) {
	return uc.AwardRepo.FindByRfq(ctx, rfqID)
}

// AwardHistory returns the append-only StatusEvent trail for an Award.
func (uc *UseCase) AwardHistory(ctx context.Context, id int64) ([]statusevent.Event, error) {
	return uc.statusHistory(ctx, statusevent.EntityAward, id)
}
