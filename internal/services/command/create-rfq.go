package command

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// CreateRfqInput selects which PurchaseRequestItem rows the new Rfq
// bundles for supplier pricing.
type CreateRfqInput struct {
	Title                  string
	PurchaseRequestItemIDs []int64
}

// CreateRfq resolves the selected items back to their parent requests,
// clones each into a denormalized RfqItem snapshot, and moves every
// request that still allows it from pending_rfq to in_rfq (spec §4.4).
// A request already past pending_rfq, or one the flow policy otherwise
// rejects, aborts the whole command — an Rfq never partially bundles.
func (uc *UseCase) CreateRfq(ctx context.Context, in CreateRfqInput) (*rfq.Rfq, []rfq.Item, error) {
	if len(in.PurchaseRequestItemIDs) == 0 {
		return nil, nil, apperr.ValidationError{
			EntityType: "Rfq",
			Code:       constant.ErrItemsRequired.Error(),
			Title:      "Items Required",
			Message:    "at least one purchase request item id is required",
		}
	}

	var (
		created      *rfq.Rfq
		createdItems []rfq.Item
	)

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		items, err := uc.PurchaseRequestRepo.FindItemsByIDs(ctx, in.PurchaseRequestItemIDs)
		if err != nil {
			return err
		}

		if len(items) == 0 {
			return apperr.EntityNotFoundError{
				EntityType: "PurchaseRequestItem",
				Code:       constant.ErrEntityNotFound.Error(),
				Title:      "Entity Not Found",
				Message:    "none of the provided purchase request item ids were found for this tenant",
			}
		}

		requestIDs := make(map[int64]bool)
		for _, item := range items {
			requestIDs[item.RequestID] = true
		}

		requests := make(map[int64]*purchaserequest.PurchaseRequest, len(requestIDs))

		for id := range requestIDs {
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
				string(pr.Status), flowpolicy.ActionCreateRfq); err != nil {
				return err
			}

			requests[id] = pr
		}

		newRfq := &rfq.Rfq{
			Title:  in.Title,
			Status: rfq.StatusDraft,
		}

		rfqItems := make([]rfq.Item, 0, len(items))
		for _, item := range items {
			rfqItems = append(rfqItems, rfq.Item{
				PurchaseRequestItemID: item.ID,
				Description:           item.Description,
				Quantity:              item.Quantity,
				Uom:                   item.Uom,
			})
		}

		created, createdItems, err = uc.RfqRepo.Create(ctx, newRfq, rfqItems)
		if err != nil {
			return err
		}

		if err := uc.appendEvent(ctx, statusevent.EntityRfq, created.ID, nil,
			string(rfq.StatusDraft), statusevent.ReasonRfqCreated); err != nil {
			return err
		}

		for id, pr := range requests {
			previous := string(pr.Status)
			pr.Status = purchaserequest.StatusInRfq

			if _, err := uc.PurchaseRequestRepo.Update(ctx, pr); err != nil {
				return err
			}

			if err := uc.appendEvent(ctx, statusevent.EntityPurchaseRequest, id, strPtr(previous),
				string(purchaserequest.StatusInRfq), statusevent.ReasonRfqCreated); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		uc.logger().Errorf("create rfq: %v", err)

		return nil, nil, err
	}

	return created, createdItems, nil
}
