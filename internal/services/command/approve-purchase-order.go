package command

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// ApprovePurchaseOrder moves a draft PurchaseOrder to approved — the
// non-critical approve_order action, since unlike push_to_erp it commits
// nothing outside this system.
func (uc *UseCase) ApprovePurchaseOrder(ctx context.Context, id int64) (*purchaseorder.PurchaseOrder, error) {
	var approved *purchaseorder.PurchaseOrder

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
			string(po.Status), flowpolicy.ActionApprovePo); err != nil {
			return err
		}

		previous := string(po.Status)
		po.Status = purchaseorder.StatusApproved

		approved, err = uc.PurchaseOrderRepo.Update(ctx, po)
		if err != nil {
			return err
		}

		return uc.appendEvent(ctx, statusevent.EntityPurchaseOrder, approved.ID, strPtr(previous),
			string(purchaseorder.StatusApproved), statusevent.ReasonPoApproved)
	})
	if err != nil {
		uc.logger().Errorf("approve purchase order %d: %v", id, err)

		return nil, err
	}

	return approved, nil
}
