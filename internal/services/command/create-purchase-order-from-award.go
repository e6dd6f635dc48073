package command

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Lucasschwertz/procurement-core/internal/domain/award"
	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// PurchaseOrderLineInput is one priced line carried over from the
// winning quote into the new PurchaseOrder.
type PurchaseOrderLineInput struct {
	LineNo      int
	ProductCode *string
	Description *string
	Quantity    float64
	UnitPrice   decimal.Decimal
}

// CreatePurchaseOrderFromAwardInput is the command body for
// create_po_from_award.
type CreatePurchaseOrderFromAwardInput struct {
	AwardID  int64
	Number   string
	Currency string
	Lines    []PurchaseOrderLineInput
}

// CreatePurchaseOrderFromAward is the critical create_po_from_award
// action. It rejects outright if the award already has a PurchaseOrder
// — the one-to-one award/PO relationship is enforced here, in the
// command, rather than relying on a database unique constraint to
// surface a generic conflict (spec §4.4).
func (uc *UseCase) CreatePurchaseOrderFromAward(ctx context.Context, in CreatePurchaseOrderFromAwardInput, confirmation criticalaction.Confirmation) (*purchaseorder.PurchaseOrder, []purchaseorder.Line, error) {
	if len(in.Lines) == 0 {
		return nil, nil, apperr.ValidationError{
			EntityType: "PurchaseOrder",
			Code:       constant.ErrItemsRequired.Error(),
			Title:      "Lines Required",
			Message:    "at least one line is required to create a purchase order",
		}
	}

	var (
		createdPO    *purchaseorder.PurchaseOrder
		createdLines []purchaseorder.Line
	)

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		a, err := uc.AwardRepo.Find(ctx, in.AwardID)
		if err != nil {
			return err
		}

		if a.HasPurchaseOrder() {
			return apperr.EntityConflictError{
				EntityType: "Award",
				Code:       constant.ErrPurchaseOrderAlreadyExists.Error(),
				Title:      "Purchase Order Already Exists",
				Message:    "a purchase order has already been created from this award",
			}
		}

		if err := checkAction("Award", flowpolicy.StageForAwardStatus(string(a.Status)),
			string(a.Status), flowpolicy.ActionCreatePoFromAward); err != nil {
			return err
		}

		if err := uc.requireConfirmation(ctx, flowpolicy.ActionCreatePoFromAward, "Award", a.ID, confirmation); err != nil {
			return err
		}

		total := decimal.Zero
		lines := make([]purchaseorder.Line, 0, len(in.Lines))

		for _, l := range in.Lines {
			lineTotal := l.UnitPrice.Mul(decimal.NewFromFloat(l.Quantity))
			total = total.Add(lineTotal)

			lines = append(lines, purchaseorder.Line{
				LineNo:      l.LineNo,
				ProductCode: l.ProductCode,
				Description: l.Description,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				TotalPrice:  &lineTotal,
			})
		}

		po := &purchaseorder.PurchaseOrder{
			Number:       in.Number,
			AwardID:      &in.AwardID,
			SupplierName: a.SupplierName,
			Status:       purchaseorder.StatusApproved,
			Currency:     in.Currency,
			TotalAmount:  total,
		}

		createdPO, createdLines, err = uc.PurchaseOrderRepo.Create(ctx, po, lines)
		if err != nil {
			return err
		}

		if err := uc.appendEvent(ctx, statusevent.EntityPurchaseOrder, createdPO.ID, nil,
			string(purchaseorder.StatusApproved), statusevent.ReasonPoCreatedFromAward); err != nil {
			return err
		}

		previous := string(a.Status)
		a.Status = award.StatusConvertedToPo
		a.PurchaseOrderID = &createdPO.ID

		if _, err := uc.AwardRepo.Update(ctx, a); err != nil {
			return err
		}

		return uc.appendEvent(ctx, statusevent.EntityAward, a.ID, strPtr(previous),
			string(award.StatusConvertedToPo), statusevent.ReasonPoCreatedFromAward)
	})
	if err != nil {
		uc.logger().Errorf("create purchase order from award %d: %v", in.AwardID, err)

		return nil, nil, err
	}

	return createdPO, createdLines, nil
}
