package in

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/internal/services/command"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/nethttp"
)

// CreatePurchaseRequestBody is the wire body for
// POST /api/procurement/solicitacoes.
type CreatePurchaseRequestBody struct {
	Number      string                        `json:"number" validate:"required"`
	Priority    purchaserequest.Priority      `json:"priority"`
	RequestedBy string                        `json:"requested_by" validate:"required"`
	Department  string                        `json:"department" validate:"required"`
	NeededAt    *time.Time                    `json:"needed_at,omitempty"`
	Items       []CreatePurchaseRequestItem   `json:"items"`
}

// CreatePurchaseRequestItem is one requested line in the wire body.
type CreatePurchaseRequestItem struct {
	LineNo      int     `json:"line_no,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Uom         string  `json:"uom"`
	Category    *string `json:"category,omitempty"`
}

// CreatePurchaseRequestResponse is the 201 body (spec §6.1): the created
// id, status, and how many of the submitted items actually survived.
type CreatePurchaseRequestResponse struct {
	ID            int64                    `json:"id"`
	Status        purchaserequest.Status   `json:"status"`
	ItemsCreated  int                      `json:"items_created"`
}

// CreatePurchaseRequest handles POST /api/procurement/solicitacoes.
func (h *ProcurementHandler) CreatePurchaseRequest(p any, c *fiber.Ctx) error {
	body := p.(*CreatePurchaseRequestBody)

	items := make([]command.ItemInput, 0, len(body.Items))
	for _, it := range body.Items {
		items = append(items, command.ItemInput{
			LineNo:      it.LineNo,
			Description: it.Description,
			Quantity:    it.Quantity,
			Uom:         it.Uom,
			Category:    it.Category,
		})
	}

	priority := body.Priority
	if priority == "" {
		priority = purchaserequest.PriorityMedium
	}

	pr, createdItems, err := h.Command.CreatePurchaseRequest(c.UserContext(), command.CreatePurchaseRequestInput{
		Number:      body.Number,
		Priority:    priority,
		RequestedBy: body.RequestedBy,
		Department:  body.Department,
		NeededAt:    body.NeededAt,
		Items:       items,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.Created(c, CreatePurchaseRequestResponse{
		ID:           pr.ID,
		Status:       pr.Status,
		ItemsCreated: len(createdItems),
	})
}

// UpdatePurchaseRequestBody carries the fields a PATCH may change; a nil
// pointer leaves the field unchanged.
type UpdatePurchaseRequestBody struct {
	Priority    *purchaserequest.Priority `json:"priority,omitempty"`
	RequestedBy *string                   `json:"requested_by,omitempty"`
	Department  *string                   `json:"department,omitempty"`
	NeededAt    *time.Time                `json:"needed_at,omitempty"`
}

// UpdatePurchaseRequest handles PATCH /api/procurement/solicitacoes/:id.
func (h *ProcurementHandler) UpdatePurchaseRequest(p any, c *fiber.Ctx) error {
	body := p.(*UpdatePurchaseRequestBody)

	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	updated, err := h.Command.UpdatePurchaseRequest(c.UserContext(), id, command.UpdatePurchaseRequestInput{
		Priority:    body.Priority,
		RequestedBy: body.RequestedBy,
		Department:  body.Department,
		NeededAt:    body.NeededAt,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, updated)
}

// CancelPurchaseRequest handles DELETE /api/procurement/solicitacoes/:id.
func (h *ProcurementHandler) CancelPurchaseRequest(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	cancelled, err := h.Command.CancelPurchaseRequest(c.UserContext(), id, parseConfirmation(c))
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, cancelled)
}

// GetPurchaseRequest handles GET /api/procurement/solicitacoes/:id.
func (h *ProcurementHandler) GetPurchaseRequest(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	view, err := h.Query.GetPurchaseRequest(c.UserContext(), id)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, view)
}

// ListPurchaseRequests handles GET /api/procurement/solicitacoes.
func (h *ProcurementHandler) ListPurchaseRequests(c *fiber.Ctx) error {
	limit, cursor := pagingParams(c)

	list, err := h.Query.ListPurchaseRequests(c.UserContext(), limit, cursor)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, list)
}

// PurchaseRequestHistory handles GET /api/procurement/solicitacoes/:id/history.
func (h *ProcurementHandler) PurchaseRequestHistory(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	events, err := h.Query.PurchaseRequestHistory(c.UserContext(), id)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, events)
}
