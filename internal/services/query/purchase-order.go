package query

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/receipt"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
)

// PurchaseOrderView bundles a PurchaseOrder with its lines, receipts so
// far, and the pipeline presentation.
type PurchaseOrderView struct {
	Order    purchaseorder.PurchaseOrder
	Lines    []purchaseorder.Line
	Receipts []receipt.Receipt
	Steps    []flowpolicy.ProcessStep
}

// GetPurchaseOrder resolves a single PurchaseOrder with its lines and any
// receipts recorded against it.
func (uc *UseCase) GetPurchaseOrder(ctx context.Context, id int64) (*PurchaseOrderView, error) {
	po, err := uc.PurchaseOrderRepo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	lines, err := uc.PurchaseOrderRepo.FindLines(ctx, id)
	if err != nil {
		return nil, err
	}

	receipts, err := uc.ReceiptRepo.FindByPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	stage := flowpolicy.StageForPurchaseOrderStatus(string(po.Status))

	return &PurchaseOrderView{Order: *po, Lines: lines, Receipts: receipts, Steps: flowpolicy.ProcessSteps(stage)}, nil
}

// ListPurchaseOrders returns a keyset page of purchase orders, scoped to
// tenant.
func (uc *UseCase) ListPurchaseOrders(ctx context.Context, limit int, cursor int64) ([]*purchaseorder.PurchaseOrder, error) {
	return uc.PurchaseOrderRepo.List(ctx, limit, cursor)
}

// PurchaseOrderHistory returns the append-only StatusEvent trail for a
// PurchaseOrder.
func (uc *UseCase) PurchaseOrderHistory(ctx context.Context, id int64) ([]statusevent.Event, error) {
	return uc.statusHistory(ctx, statusevent.EntityPurchaseOrder, id)
}
