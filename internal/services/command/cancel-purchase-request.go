package command

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// CancelPurchaseRequest is the critical cancel_request action (spec
// §6.1's DELETE .../solicitacoes/{id}?confirm=true). It requires
// confirmation, is rejected for ERP-managed requests, and moves the
// request straight to cancelled regardless of which solicitacao status
// it was in, provided the flow policy allows it.
func (uc *UseCase) CancelPurchaseRequest(ctx context.Context, id int64, confirmation criticalaction.Confirmation) (*purchaserequest.PurchaseRequest, error) {
	var cancelled *purchaserequest.PurchaseRequest

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		pr, err := uc.PurchaseRequestRepo.Find(ctx, id)
		if err != nil {
			return err
		}

		if pr.IsErpManaged() {
			return apperr.UnprocessableOperationError{
				EntityType: "PurchaseRequest",
				Code:       constant.ErrErpManagedReadonly.Error(),
				Title:      "ERP Managed",
				Message:    "erp_managed_request_readonly",
			}
		}

		if err := checkAction("PurchaseRequest", flowpolicy.StageForPurchaseRequestStatus(string(pr.Status)),
			string(pr.Status), flowpolicy.ActionCancelRequest); err != nil {
			return err
		}

		if err := uc.requireConfirmation(ctx, flowpolicy.ActionCancelRequest, "PurchaseRequest", pr.ID, confirmation); err != nil {
			return err
		}

		previous := string(pr.Status)
		pr.Status = purchaserequest.StatusCancelled

		cancelled, err = uc.PurchaseRequestRepo.Update(ctx, pr)
		if err != nil {
			return err
		}

		return uc.appendEvent(ctx, statusevent.EntityPurchaseRequest, cancelled.ID, strPtr(previous),
			string(purchaserequest.StatusCancelled), statusevent.ReasonRequestCancelled)
	})
	if err != nil {
		uc.logger().Errorf("cancel purchase request %d: %v", id, err)

		return nil, err
	}

	return cancelled, nil
}
