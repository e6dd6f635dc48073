package command

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
)

// DeleteSupplierProposal is the critical delete_proposal action: it
// removes a submitted Quote and its QuoteItems outright and downgrades
// the owning invite back to opened, so the supplier can re-price from
// scratch instead of amending a withdrawn proposal (spec §4.4).
func (uc *UseCase) DeleteSupplierProposal(ctx context.Context, quoteID int64, confirmation criticalaction.Confirmation) error {
	return uc.withTransaction(ctx, func(ctx context.Context) error {
		quote, err := uc.RfqRepo.FindQuote(ctx, quoteID)
		if err != nil {
			return err
		}

		if err := checkAction("RfqQuote", flowpolicy.StageForInviteStatus("submitted"),
			quote.Status, flowpolicy.ActionDeleteProposal); err != nil {
			return err
		}

		if err := uc.requireConfirmation(ctx, flowpolicy.ActionDeleteProposal, "RfqQuote", quote.ID, confirmation); err != nil {
			return err
		}

		invites, err := uc.RfqRepo.FindInvitesByRfq(ctx, quote.RfqID)
		if err != nil {
			return err
		}

		if err := uc.RfqRepo.DeleteQuote(ctx, quoteID); err != nil {
			return err
		}

		for _, inv := range invites {
			if inv.SupplierID != quote.SupplierID || inv.Status != rfq.InviteStatusSubmitted {
				continue
			}

			inv.Status = rfq.InviteStatusOpened
			inv.SubmittedAt = nil

			if _, err := uc.RfqRepo.UpdateInvite(ctx, &inv); err != nil {
				return err
			}
		}

		return nil
	})
}
