package command

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
)

// CancelRfq is the critical cancel_rfq action, recording the cancel
// reason verbatim for anyone later reviewing why a solicitation was
// abandoned.
func (uc *UseCase) CancelRfq(ctx context.Context, id int64, reason string, confirmation criticalaction.Confirmation) (*rfq.Rfq, error) {
	var cancelled *rfq.Rfq

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		r, err := uc.RfqRepo.Find(ctx, id)
		if err != nil {
			return err
		}

		if err := checkAction("Rfq", flowpolicy.StageForRfqStatus(string(r.Status)),
			string(r.Status), flowpolicy.ActionCancelRfq); err != nil {
			return err
		}

		if err := uc.requireConfirmation(ctx, flowpolicy.ActionCancelRfq, "Rfq", r.ID, confirmation); err != nil {
			return err
		}

		previous := string(r.Status)
		r.Status = rfq.StatusCancelled

		if reason != "" {
			r.CancelReason = &reason
		}

		cancelled, err = uc.RfqRepo.Update(ctx, r)
		if err != nil {
			return err
		}

		return uc.appendEvent(ctx, statusevent.EntityRfq, cancelled.ID, strPtr(previous),
			string(rfq.StatusCancelled), statusevent.ReasonRfqCancelled)
	})
	if err != nil {
		uc.logger().Errorf("cancel rfq %d: %v", id, err)

		return nil, err
	}

	return cancelled, nil
}
