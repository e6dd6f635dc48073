package query

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
)

// PurchaseRequestView bundles a PurchaseRequest with its items and the
// pipeline presentation a client renders alongside it.
type PurchaseRequestView struct {
	Request purchaserequest.PurchaseRequest
	Items   []purchaserequest.Item
	Steps   []flowpolicy.ProcessStep
}

// GetPurchaseRequest resolves a single request with its items and
// process steps.
func (uc *UseCase) GetPurchaseRequest(ctx context.Context, id int64) (*PurchaseRequestView, error) {
	req, err := uc.PurchaseRequestRepo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := uc.PurchaseRequestRepo.FindItems(ctx, id)
	if err != nil {
		return nil, err
	}

	stage := flowpolicy.StageForPurchaseRequestStatus(string(req.Status))

	return &PurchaseRequestView{Request: *req, Items: items, Steps: flowpolicy.ProcessSteps(stage)}, nil
}

// ListPurchaseRequests returns a keyset page of requests, scoped to
// tenant.
func (uc *UseCase) ListPurchaseRequests(ctx context.Context, limit int, cursor int64) ([]*purchaserequest.PurchaseRequest, error) {
	return uc.PurchaseRequestRepo.List(ctx, limit, cursor)
}

// PurchaseRequestHistory returns the append-only StatusEvent trail for a
// request.
func (uc *UseCase) PurchaseRequestHistory(ctx context.Context, id int64) ([]statusevent.Event, error) {
	return uc.statusHistory(ctx, statusevent.EntityPurchaseRequest, id)
}
