package command

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// CancelPurchaseOrder is the critical cancel_order action. Like
// UpdatePurchaseRequest, it is rejected outright once the order is
// ERP-managed — cancelling a commitment already sent to the ERP has to
// happen there, not by silently orphaning the local row.
func (uc *UseCase) CancelPurchaseOrder(ctx context.Context, id int64, confirmation criticalaction.Confirmation) (*purchaseorder.PurchaseOrder, error) {
	var cancelled *purchaseorder.PurchaseOrder

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		po, err := uc.PurchaseOrderRepo.Find(ctx, id)
		if err != nil {
			return err
		}

		if po.IsErpManaged() {
			return apperr.UnprocessableOperationError{
				EntityType: "PurchaseOrder",
				Code:       constant.ErrErpManagedReadonly.Error(),
				Title:      "ERP Managed",
				Message:    "erp_managed_order_readonly",
			}
		}

		if err := checkAction("PurchaseOrder", flowpolicy.StageForPurchaseOrderStatus(string(po.Status)),
			string(po.Status), flowpolicy.ActionCancelPo); err != nil {
			return err
		}

		if err := uc.requireConfirmation(ctx, flowpolicy.ActionCancelPo, "PurchaseOrder", po.ID, confirmation); err != nil {
			return err
		}

		previous := string(po.Status)
		po.Status = purchaseorder.StatusCancelled

		cancelled, err = uc.PurchaseOrderRepo.Update(ctx, po)
		if err != nil {
			return err
		}

		return uc.appendEvent(ctx, statusevent.EntityPurchaseOrder, cancelled.ID, strPtr(previous),
			string(purchaseorder.StatusCancelled), statusevent.ReasonOrderCancelled)
	})
	if err != nil {
		uc.logger().Errorf("cancel purchase order %d: %v", id, err)

		return nil, err
	}

	return cancelled, nil
}
