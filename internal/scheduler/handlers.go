package scheduler

import (
	"context"
	"encoding/json"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/erp"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/internal/domain/receipt"
)

// PurchaseRequestHandler mirrors ERP-origin purchase requests back into
// the local table — once ExternalID is set a request becomes read-only
// to direct commands (purchaserequest.PurchaseRequest.IsErpManaged), so
// this is the only path that may still write to it.
type PurchaseRequestHandler struct {
	Repo purchaserequest.Repository
}

var _ ScopeHandler = PurchaseRequestHandler{}

func (h PurchaseRequestHandler) Upsert(ctx context.Context, record erp.PulledRecord) error {
	var pr purchaserequest.PurchaseRequest
	if err := json.Unmarshal(record.Raw, &pr); err != nil {
		return err
	}

	pr.ExternalID = &record.ExternalID

	_, err := h.Repo.UpsertByExternalID(ctx, &pr)

	return err
}

// PurchaseOrderHandler mirrors ERP-origin purchase order fields (e.g. a
// status correction made directly in the ERP) back into the local table.
type PurchaseOrderHandler struct {
	Repo purchaseorder.Repository
}

var _ ScopeHandler = PurchaseOrderHandler{}

func (h PurchaseOrderHandler) Upsert(ctx context.Context, record erp.PulledRecord) error {
	var po purchaseorder.PurchaseOrder
	if err := json.Unmarshal(record.Raw, &po); err != nil {
		return err
	}

	po.ExternalID = &record.ExternalID

	_, err := h.Repo.UpsertByExternalID(ctx, &po)

	return err
}

// ReceiptHandler upserts a goods-received record and, per spec §6.3,
// also advances the parent PurchaseOrder's own status when the incoming
// receipt status indicates partial or full receiving.
type ReceiptHandler struct {
	ReceiptRepo       receipt.Repository
	PurchaseOrderRepo purchaseorder.Repository
}

var _ ScopeHandler = ReceiptHandler{}

func (h ReceiptHandler) Upsert(ctx context.Context, record erp.PulledRecord) error {
	var r receipt.Receipt
	if err := json.Unmarshal(record.Raw, &r); err != nil {
		return err
	}

	r.ExternalID = record.ExternalID

	// Unrecognized upstream values coerce to the safest default
	// (pending) rather than falsely advancing the PO (Open Question b).
	status, _ := receipt.NormalizeStatus(string(r.Status))
	r.Status = status

	saved, err := h.ReceiptRepo.UpsertByExternalID(ctx, &r)
	if err != nil {
		return err
	}

	return h.advanceParentOrder(ctx, saved)
}

func (h ReceiptHandler) advanceParentOrder(ctx context.Context, r *receipt.Receipt) error {
	var next purchaseorder.Status

	switch r.Status {
	case receipt.StatusPartiallyReceived:
		next = purchaseorder.StatusPartiallyReceived
	case receipt.StatusReceived:
		next = purchaseorder.StatusReceived
	default:
		return nil
	}

	po, err := h.PurchaseOrderRepo.Find(ctx, r.PurchaseOrderID)
	if err != nil {
		return err
	}

	if po.Status == next {
		return nil
	}

	po.Status = next

	_, err = h.PurchaseOrderRepo.Update(ctx, po)

	return err
}
