package command

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/award"
	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// CancelAward is the critical cancel_award action. It never touches the
// Rfq it descends from — a cancelled award simply leaves the Rfq
// re-awardable via a fresh AwardRfq call, since an Rfq may carry many
// Award rows over its lifetime.
func (uc *UseCase) CancelAward(ctx context.Context, id int64, confirmation criticalaction.Confirmation) (*award.Award, error) {
	var cancelled *award.Award

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		a, err := uc.AwardRepo.Find(ctx, id)
		if err != nil {
			return err
		}

		if a.HasPurchaseOrder() {
			return apperr.UnprocessableOperationError{
				EntityType: "Award",
				Code:       constant.ErrPurchaseOrderAlreadyExists.Error(),
				Title:      "Purchase Order Already Exists",
				Message:    "award already converted to a purchase order",
			}
		}

		if err := checkAction("Award", flowpolicy.StageForAwardStatus(string(a.Status)),
			string(a.Status), flowpolicy.ActionCancelAward); err != nil {
			return err
		}

		if err := uc.requireConfirmation(ctx, flowpolicy.ActionCancelAward, "Award", a.ID, confirmation); err != nil {
			return err
		}

		previous := string(a.Status)
		a.Status = award.StatusCancelled

		cancelled, err = uc.AwardRepo.Update(ctx, a)
		if err != nil {
			return err
		}

		return uc.appendEvent(ctx, statusevent.EntityAward, cancelled.ID, strPtr(previous),
			string(award.StatusCancelled), statusevent.ReasonAwardCancelled)
	})
	if err != nil {
		uc.logger().Errorf("cancel award %d: %v", id, err)

		return nil, err
	}

	return cancelled, nil
}
