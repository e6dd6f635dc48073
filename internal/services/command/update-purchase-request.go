package command

import (
	"context"
	"time"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// UpdatePurchaseRequestInput carries the fields a PATCH may change; a nil
// pointer means "leave unchanged".
type UpdatePurchaseRequestInput struct {
	Priority    *purchaserequest.Priority
	RequestedBy *string
	Department  *string
	NeededAt    *time.Time
}

// UpdatePurchaseRequest applies a partial update, rejecting when the
// request is ERP-managed or the action isn't legal for its current
// status (spec §4.4).
func (uc *UseCase) UpdatePurchaseRequest(ctx context.Context, id int64, in UpdatePurchaseRequestInput) (*purchaserequest.PurchaseRequest, error) {
	var updated *purchaserequest.PurchaseRequest

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
			string(pr.Status), flowpolicy.ActionUpdateRequest); err != nil {
			return err
		}

		if in.Priority != nil {
			pr.Priority = *in.Priority
		}

		if in.RequestedBy != nil {
			pr.RequestedBy = *in.RequestedBy
		}

		if in.Department != nil {
			pr.Department = *in.Department
		}

		if in.NeededAt != nil {
			pr.NeededAt = in.NeededAt
		}

		updated, err = uc.PurchaseRequestRepo.Update(ctx, pr)

		return err
	})
	if err != nil {
		uc.logger().Errorf("update purchase request %d: %v", id, err)

		return nil, err
	}

	return updated, nil
}
