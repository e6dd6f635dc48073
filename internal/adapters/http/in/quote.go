package in

import (
	"github.com/shopspring/decimal"

	"github.com/Lucasschwertz/procurement-core/internal/services/command"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// decodePurchaseOrderLines parses the wire decimal strings in a
// create-purchase-order-from-award body into the command layer's
// PurchaseOrderLineInput.
func decodePurchaseOrderLines(lines []CreatePurchaseOrderLine) ([]command.PurchaseOrderLineInput, error) {
	out := make([]command.PurchaseOrderLineInput, 0, len(lines))

	for _, l := range lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, apperr.ValidationError{
				EntityType: "PurchaseOrderLine",
				Code:       constant.ErrValidation.Error(),
				Title:      "Invalid Price",
				Message:    "unit_price must be a decimal string",
			}
		}

		out = append(out, command.PurchaseOrderLineInput{
			LineNo:      l.LineNo,
			ProductCode: l.ProductCode,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   price,
		})
	}

	return out, nil
}

// decodeQuoteItems parses the wire decimal strings in body items into the
// command layer's QuoteItemInput, rejecting a malformed price outright
// rather than silently truncating it.
func decodeQuoteItems(items []QuoteItemBody) ([]command.QuoteItemInput, error) {
	out := make([]command.QuoteItemInput, 0, len(items))

	for _, it := range items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, apperr.ValidationError{
				EntityType: "RfqQuoteItem",
				Code:       constant.ErrValidation.Error(),
				Title:      "Invalid Price",
				Message:    "unit_price must be a decimal string",
			}
		}

		out = append(out, command.QuoteItemInput{
			RfqItemID:    it.RfqItemID,
			UnitPrice:    price,
			LeadTimeDays: it.LeadTimeDays,
		})
	}

	return out, nil
}
