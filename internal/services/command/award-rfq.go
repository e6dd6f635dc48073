package command

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/award"
	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// AwardRfqInput names the winning supplier and the reason the decision
// was made — reason is mandatory, since it's the only free-text
// explanation analytics and the award's audit trail ever get for why
// this supplier won over the others who quoted.
type AwardRfqInput struct {
	RfqID        int64
	SupplierID   int64
	SupplierName string
	Reason       string
}

// AwardRfq is the critical award_rfq action. It requires at least one
// submitted quote to exist for the Rfq, moves the Rfq to awarded, and
// creates the Award record — two aggregates transition in the same
// commit, so both get a StatusEvent (spec §4.4, §4.10).
func (uc *UseCase) AwardRfq(ctx context.Context, in AwardRfqInput, confirmation criticalaction.Confirmation) (*award.Award, error) {
	if in.Reason == "" {
		return nil, apperr.ValidationError{
			EntityType: "Award",
			Code:       constant.ErrMissingRequiredFields.Error(),
			Title:      "Reason Required",
			Message:    "a reason is required to award an rfq",
		}
	}

	var created *award.Award

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		r, err := uc.RfqRepo.Find(ctx, in.RfqID)
		if err != nil {
			return err
		}

		if err := checkAction("Rfq", flowpolicy.StageForRfqStatus(string(r.Status)),
			string(r.Status), flowpolicy.ActionAwardRfq); err != nil {
			return err
		}

		if err := uc.requireConfirmation(ctx, flowpolicy.ActionAwardRfq, "Rfq", r.ID, confirmation); err != nil {
			return err
		}

		quotes, err := uc.RfqRepo.FindQuotesByRfq(ctx, in.RfqID)
		if err != nil {
			return err
		}

		if len(quotes) == 0 {
			return apperr.UnprocessableOperationError{
				EntityType: "Rfq",
				Code:       constant.ErrNoQuotesToAward.Error(),
				Title:      "No Quotes To Award",
				Message:    "no_quotes_to_award",
			}
		}

		created, err = uc.AwardRepo.Create(ctx, &award.Award{
			RfqID:        in.RfqID,
			SupplierName: in.SupplierName,
			Status:       award.StatusAwarded,
			Reason:       in.Reason,
		})
		if err != nil {
			return err
		}

		if err := uc.appendEvent(ctx, statusevent.EntityAward, created.ID, nil,
			string(award.StatusAwarded), statusevent.ReasonAwardCreated); err != nil {
			return err
		}

		previous := string(r.Status)
		r.Status = rfq.StatusAwarded

		if _, err := uc.RfqRepo.Update(ctx, r); err != nil {
			return err
		}

		return uc.appendEvent(ctx, statusevent.EntityRfq, r.ID, strPtr(previous),
			string(rfq.StatusAwarded), statusevent.ReasonRfqAwarded)
	})
	if err != nil {
		uc.logger().Errorf("award rfq %d: %v", in.RfqID, err)

		return nil, err
	}

	return created, nil
}
