package command

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// SaveSupplierQuoteInput is the internal (authenticated-staff) path for
// recording or amending a supplier's proposal on their behalf — e.g. a
// quote collected over phone or email rather than through the portal.
type SaveSupplierQuoteInput struct {
	RfqID      int64
	SupplierID int64
	Currency   string
	Items      []QuoteItemInput
}

// SaveSupplierQuote differs from SubmitSupplierQuote in two ways: it is
// reached by an authenticated principal rather than an invite token, and
// it rejects outright — rather than silently dropping — if any priced
// item id wasn't actually invited to this supplier (spec §4.4).
func (uc *UseCase) SaveSupplierQuote(ctx context.Context, in SaveSupplierQuoteInput) (*rfq.Quote, []rfq.QuoteItem, error) {
	if len(in.Items) == 0 {
		return nil, nil, apperr.ValidationError{
			EntityType: "RfqQuoteItem",
			Code:       constant.ErrItemsRequired.Error(),
			Title:      "Items Required",
			Message:    "at least one item must be priced",
		}
	}

	var (
		savedQuote *rfq.Quote
		savedItems []rfq.QuoteItem
	)

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		invited, err := uc.RfqRepo.FindInvitedItemIDs(ctx, in.RfqID, in.SupplierID)
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
				return apperr.ValidationError{
					EntityType: "RfqQuoteItem",
					Code:       constant.ErrSupplierNotInvitedForItems.Error(),
					Title:      "Supplier Not Invited",
					Message:    "supplier_not_invited_for_items",
				}
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

		quote := &rfq.Quote{RfqID: in.RfqID, SupplierID: in.SupplierID, Currency: in.Currency, Status: "submitted"}

		savedQuote, savedItems, err = uc.RfqRepo.SaveQuote(ctx, quote, items)

		return err
	})
	if err != nil {
		uc.logger().Errorf("save supplier quote for rfq %d supplier %d: %v", in.RfqID, in.SupplierID, err)

		return nil, nil, err
	}

	return savedQuote, savedItems, nil
}
