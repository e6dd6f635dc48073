package command

import (
	"context"
	"time"

	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// ItemInput is one requested line as parsed at the edge; LineNo is
// optional — when zero the service assigns dense 1..n numbering.
type ItemInput struct {
	LineNo      int
	Description string
	Quantity    float64
	Uom         string
	Category    *string
}

// CreatePurchaseRequestInput is the parsed command body.
type CreatePurchaseRequestInput struct {
	Number      string
	Priority    purchaserequest.Priority
	RequestedBy string
	Department  string
	NeededAt    *time.Time
	Items       []ItemInput
}

// CreatePurchaseRequest creates a PurchaseRequest with its items. If no
// item survives the description-non-empty/quantity-positive filter, no
// row is created and the request fails with items_required (spec §4.4).
func (uc *UseCase) CreatePurchaseRequest(ctx context.Context, in CreatePurchaseRequestInput) (*purchaserequest.PurchaseRequest, []purchaserequest.Item, error) {
	valid := make([]purchaserequest.Item, 0, len(in.Items))

	for _, item := range in.Items {
		i := purchaserequest.Item{
			Description: item.Description,
			Quantity:    item.Quantity,
			Uom:         item.Uom,
			Category:    item.Category,
		}

		if !i.Valid() {
			continue
		}

		valid = append(valid, i)
	}

	if len(valid) == 0 {
		return nil, nil, apperr.ValidationError{
			EntityType: "PurchaseRequest",
			Code:       constant.ErrItemsRequired.Error(),
			Title:      "Items Required",
			Message:    "at least one item with a non-empty description and a positive quantity is required",
		}
	}

	for i := range valid {
		valid[i].LineNo = i + 1
	}

	priority := in.Priority
	if priority == "" {
		priority = purchaserequest.PriorityMedium
	}

	pr := &purchaserequest.PurchaseRequest{
		Number:      in.Number,
		Status:      purchaserequest.StatusPendingRfq,
		Priority:    priority,
		RequestedBy: in.RequestedBy,
		Department:  in.Department,
		NeededAt:    in.NeededAt,
	}

	var (
		created      *purchaserequest.PurchaseRequest
		createdItems []purchaserequest.Item
	)

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		var err error

		created, createdItems, err = uc.PurchaseRequestRepo.Create(ctx, pr, valid)
		if err != nil {
			return err
		}

		return uc.appendEvent(ctx, statusevent.EntityPurchaseRequest, created.ID, nil,
			string(purchaserequest.StatusPendingRfq), statusevent.ReasonRequestCreated)
	})
	if err != nil {
		uc.logger().Errorf("create purchase request: %v", err)

		return nil, nil, err
	}

	return created, createdItems, nil
}
