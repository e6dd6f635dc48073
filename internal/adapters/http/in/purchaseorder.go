package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/services/command"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/nethttp"
)

// CreatePurchaseOrderBody is the wire body for
// POST /api/procurement/awards/{id}/purchase-orders.
type CreatePurchaseOrderBody struct {
	Number   string                       `json:"number" validate:"required"`
	Currency string                       `json:"currency" validate:"required"`
	Lines    []CreatePurchaseOrderLine    `json:"lines" validate:"required,min=1"`
}

// CreatePurchaseOrderLine is one priced line in the wire body.
type CreatePurchaseOrderLine struct {
	LineNo      int     `json:"line_no"`
	ProductCode *string `json:"product_code,omitempty"`
	Description *string `json:"description,omitempty"`
	Quantity    float64 `json:"quantity" validate:"required"`
	UnitPrice   string  `json:"unit_price" validate:"required"`
}

// CreatePurchaseOrderResponse is the 201 body (spec §6.1).
type CreatePurchaseOrderResponse struct {
	PurchaseOrderID int64 `json:"purchase_order_id"`
}

// CreatePurchaseOrderFromAward handles
// POST /api/procurement/awards/{id}/purchase-orders?confirm=true.
func (h *ProcurementHandler) CreatePurchaseOrderFromAward(p any, c *fiber.Ctx) error {
	body := p.(*CreatePurchaseOrderBody)

	awardID, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Award Id", Message: "id must be numeric"})
	}

	lines, err := decodePurchaseOrderLines(body.Lines)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	po, _, err := h.Command.CreatePurchaseOrderFromAward(c.UserContext(), command.CreatePurchaseOrderFromAwardInput{
		AwardID:  awardID,
		Number:   body.Number,
		Currency: body.Currency,
		Lines:    lines,
	}, parseConfirmation(c))
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.Created(c, CreatePurchaseOrderResponse{PurchaseOrderID: po.ID})
}

// ApprovePurchaseOrder handles
// POST /api/procurement/purchase-orders/{id}/approve.
func (h *ProcurementHandler) ApprovePurchaseOrder(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	approved, err := h.Command.ApprovePurchaseOrder(c.UserContext(), id)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, approved)
}

// CancelPurchaseOrder handles DELETE /api/procurement/purchase-orders/:id.
func (h *ProcurementHandler) CancelPurchaseOrder(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	cancelled, err := h.Command.CancelPurchaseOrder(c.UserContext(), id, parseConfirmation(c))
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, cancelled)
}

// PushToErpResponse is the 200 body for push-to-erp (spec §6.1): sent or
// already accepted. Queued is true whenever a run is pending for the
// order, whether this call created it or found it already pending.
type PushToErpResponse struct {
	Status     string `json:"status"`
	SyncRunID  int64  `json:"sync_run_id"`
	Queued     bool   `json:"queued"`
}

// EnqueueErpPush handles
// POST /api/procurement/purchase-orders/{id}/push-to-erp?confirm=true.
// It is idempotent per spec §4.5: an order already accepted answers 200
// without creating a SyncRun, and an order with a pending run answers
// 200 with that run's id instead of creating a second one.
func (h *ProcurementHandler) EnqueueErpPush(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	run, err := h.Command.EnqueueErpPush(c.UserContext(), id, parseConfirmation(c))
	if err != nil {
		if conflict, ok := err.(apperr.EntityConflictError); ok && conflict.Message == "already_accepted" {
			return nethttp.OK(c, PushToErpResponse{Status: string(purchaseorder.StatusErpAccepted), Queued: false})
		}

		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, PushToErpResponse{
		Status:    string(purchaseorder.StatusSentToErp),
		SyncRunID: run.ID,
		Queued:    true,
	})
}

// GetPurchaseOrder handles GET /api/procurement/purchase-orders/:id.
func (h *ProcurementHandler) GetPurchaseOrder(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	view, err := h.Query.GetPurchaseOrder(c.UserContext(), id)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, view)
}

// ListPurchaseOrders handles GET /api/procurement/purchase-orders.
func (h *ProcurementHandler) ListPurchaseOrders(c *fiber.Ctx) error {
	limit, cursor := pagingParams(c)

	list, err := h.Query.ListPurchaseOrders(c.UserContext(), limit, cursor)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, list)
}

// PurchaseOrderHistory handles
// GET /api/procurement/purchase-orders/:id/history.
func (h *ProcurementHandler) PurchaseOrderHistory(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	events, err := h.Query.PurchaseOrderHistory(c.UserContext(), id)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, events)
}
