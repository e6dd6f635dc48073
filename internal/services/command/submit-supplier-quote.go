package command

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// QuoteItemInput is one priced line as submitted by a supplier.
type QuoteItemInput struct {
	RfqItemID    int64
	UnitPrice    decimal.Decimal
	LeadTimeDays *int
}

// SubmitSupplierQuoteInput is the supplier-portal command body, resolved
// by invite token rather than an authenticated principal.
type SubmitSupplierQuoteInput struct {
	Token    string
	Currency string
	Items    []QuoteItemInput
}

// SubmitSupplierQuote is the public-token path a supplier follows to
// price their invited items. Only the intersection of the items they
// priced and the items they were actually invited for is kept — pricing
// an item never invited to them is silently dropped, not an error,
// mirroring a supplier portal that simply never renders fields it didn't
// ask for (spec §4.4).
func (uc *UseCase) SubmitSupplierQuote(ctx context.Context, in SubmitSupplierQuoteInput) (*rfq.Quote, []rfq.QuoteItem, error) {
	var (
		savedQuote *rfq.Quote
		savedItems []rfq.QuoteItem
	)

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		inv, err := uc.RfqRepo.FindInviteByToken(ctx, in.Token)
		if err != nil {
			return err
		}

		now := time.Now()

		if inv.IsExpired(now) && inv.Status != rfq.InviteStatusSubmitted {
			inv.Status = rfq.InviteStatusExpired

			if _, err := uc.RfqRepo.UpdateInvite(ctx, inv); err != nil {
				return err
			}

			return apperr.UnprocessableOperationError{
				EntityType: "RfqSupplierInvite",
				Code:       constant.ErrInviteTokenExpired.Error(),
				Title:      "Invite Expired",
				Message:    "invite_expired",
			}
		}

		if err := checkAction("RfqSupplierInvite", flowpolicy.StageForInviteStatus(string(inv.Status)),
			string(inv.Status), flowpolicy.ActionSubmitQuote); err != nil {
			return err
		}

		invited, err := uc.RfqRepo.FindInvitedItemIDs(ctx, inv.RfqID, inv.SupplierID)
		if err != nil {
			return err
		}

		invitedSet := make(map[int64]bool, len(invited))
		for _, id := range invited {
			invitedSet[id] = true
		}

		items := make([]rfq.QuoteItem, 0, len(in.Items))

		for _, item := range in.Items {
			if !invitedSet[item.RfqItemID] {
				continue
			}

			qi := rfq.QuoteItem{RfqItemID: item.RfqItemID, UnitPrice: item.UnitPrice, LeadTimeDays: item.LeadTimeDays}
			if !qi.Valid() {
				return apperr.ValidationError{
					EntityType: "RfqQuoteItem",
					Code:       constant.ErrValidation.Error(),
					Title:      "Invalid Quote Line",
					Message:    "unit price and lead time must not be negative",
				}
			}

			items = append(items, qi)
		}

		if len(items) == 0 {
			return apperr.ValidationError{
				EntityType: "RfqQuoteItem",
				Code:       constant.ErrItemsRequired.Error(),
				Title:      "Items Required",
				Message:    "at least one invited item must be priced",
			}
		}

		quote := &rfq.Quote{RfqID: inv.RfqID, SupplierID: inv.SupplierID, Currency: in.Currency, Status: "submitted"}

		savedQuote, savedItems, err = uc.RfqRepo.SaveQuote(ctx, quote, items)
		if err != nil {
			return err
		}

		inv.Status = rfq.InviteStatusSubmitted
		inv.SubmittedAt = &now

		if _, err := uc.RfqRepo.UpdateInvite(ctx, inv); err != nil {
			return err
		}

		r, err := uc.RfqRepo.Find(ctx, inv.RfqID)
		if err != nil {
			return err
		}

		if r.Status == rfq.StatusOpen {
			previous := string(r.Status)
			r.Status = rfq.StatusCollectingQuotes

			if _, err := uc.RfqRepo.Update(ctx, r); err != nil {
				return err
			}

			if err := uc.appendEvent(ctx, statusevent.EntityRfq, r.ID, strPtr(previous),
				string(rfq.StatusCollectingQuotes), statusevent.ReasonSupplierQuoteRecv); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		uc.logger().Errorf("submit supplier quote: %v", err)

		return nil, nil, err
	}

	return savedQuote, savedItems, nil
}
