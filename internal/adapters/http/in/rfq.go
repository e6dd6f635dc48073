package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Lucasschwertz/procurement-core/internal/services/command"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/nethttp"
)

// CreateRfqBody is the wire body for POST /api/procurement/rfqs.
type CreateRfqBody struct {
	Title                  string  `json:"title" validate:"required"`
	PurchaseRequestItemIDs []int64 `json:"purchase_request_item_ids" validate:"required,min=1"`
}

// CreateRfq handles POST /api/procurement/rfqs.
func (h *ProcurementHandler) CreateRfq(p any, c *fiber.Ctx) error {
	body := p.(*CreateRfqBody)

	r, items, err := h.Command.CreateRfq(c.UserContext(), command.CreateRfqInput{
		Title:                  body.Title,
		PurchaseRequestItemIDs: body.PurchaseRequestItemIDs,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.Created(c, fiber.Map{"rfq": r, "items": items})
}

// CancelRfqBody is the wire body for DELETE /api/procurement/rfqs/:id.
type CancelRfqBody struct {
	Reason string `json:"reason,omitempty"`
}

// CancelRfq handles DELETE /api/procurement/rfqs/:id.
func (h *ProcurementHandler) CancelRfq(p any, c *fiber.Ctx) error {
	body := p.(*CancelRfqBody)

	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	cancelled, err := h.Command.CancelRfq(c.UserContext(), id, body.Reason, parseConfirmation(c))
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, cancelled)
}

// InviteSuppliersBody is the wire body for
// POST /api/procurement/cotacoes/{rfq_id}/convites.
type InviteSuppliersBody struct {
	Suppliers []InviteSupplierBody `json:"suppliers" validate:"required,min=1"`
}

// InviteSupplierBody names one supplier and the items they're invited to
// price.
type InviteSupplierBody struct {
	SupplierID    int64   `json:"supplier_id" validate:"required"`
	RfqItemIDs    []int64 `json:"rfq_item_ids" validate:"required,min=1"`
	ExpiresInDays *int    `json:"expires_in_days,omitempty"`
}

// InvitedSupplierResponse carries the created invite plus the portal URL
// a caller can hand or email to the supplier.
type InvitedSupplierResponse struct {
	Invite any    `json:"invite"`
	URL    string `json:"url"`
}

// InviteSuppliers handles POST /api/procurement/cotacoes/{rfq_id}/convites.
func (h *ProcurementHandler) InviteSuppliers(p any, c *fiber.Ctx) error {
	body := p.(*InviteSuppliersBody)

	rfqID, err := idParam(c, "rfq_id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Rfq Id", Message: "rfq_id must be numeric"})
	}

	suppliers := make([]command.SupplierInviteInput, 0, len(body.Suppliers))
	for _, s := range body.Suppliers {
		suppliers = append(suppliers, command.SupplierInviteInput{
			SupplierID:    s.SupplierID,
			RfqItemIDs:    s.RfqItemIDs,
			ExpiresInDays: s.ExpiresInDays,
		})
	}

	invited, err := h.Command.InviteSuppliers(c.UserContext(), command.InviteSuppliersInput{
		RfqID:     rfqID,
		Suppliers: suppliers,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	resp := make([]InvitedSupplierResponse, 0, len(invited))
	for _, inv := range invited {
		resp = append(resp, InvitedSupplierResponse{Invite: inv.Invite, URL: inv.URL})
	}

	return nethttp.Created(c, resp)
}

// ResendInviteBody is the wire body for
// POST /api/procurement/convites/{id}/reenvio.
type ResendInviteBody struct {
	ExpiresInDays *int `json:"expires_in_days,omitempty"`
}

// ResendInvite handles POST /api/procurement/convites/{id}/reenvio.
func (h *ProcurementHandler) ResendInvite(p any, c *fiber.Ctx) error {
	body := p.(*ResendInviteBody)

	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	result, err := h.Command.ResendInvite(c.UserContext(), command.ResendInviteInput{
		InviteID:      id,
		ExpiresInDays: body.ExpiresInDays,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, InvitedSupplierResponse{Invite: result.Invite, URL: result.URL})
}

// SaveSupplierQuoteBody is the wire body for the authenticated-staff path
// of recording a supplier's proposal on their behalf.
type SaveSupplierQuoteBody struct {
	SupplierID int64             `json:"supplier_id" validate:"required"`
	Currency   string            `json:"currency" validate:"required"`
	Items      []QuoteItemBody   `json:"items" validate:"required,min=1"`
}

// QuoteItemBody is one priced line in a quote wire body.
type QuoteItemBody struct {
	RfqItemID    int64   `json:"rfq_item_id" validate:"required"`
	UnitPrice    string  `json:"unit_price" validate:"required"`
	LeadTimeDays *int    `json:"lead_time_days,omitempty"`
}

// SaveSupplierQuote handles POST /api/procurement/rfqs/{id}/propostas.
func (h *ProcurementHandler) SaveSupplierQuote(p any, c *fiber.Ctx) error {
	body := p.(*SaveSupplierQuoteBody)

	rfqID, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Rfq Id", Message: "id must be numeric"})
	}

	items, err := decodeQuoteItems(body.Items)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	quote, quoteItems, err := h.Command.SaveSupplierQuote(c.UserContext(), command.SaveSupplierQuoteInput{
		RfqID:      rfqID,
		SupplierID: body.SupplierID,
		Currency:   body.Currency,
		Items:      items,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.Created(c, fiber.Map{"quote": quote, "items": quoteItems})
}

// GetRfq handles GET /api/procurement/rfqs/:id.
func (h *ProcurementHandler) GetRfq(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	view, err := h.Query.GetRfq(c.UserContext(), id)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, view)
}

// DeleteSupplierProposal handles DELETE /api/procurement/propostas/:id.
func (h *ProcurementHandler) DeleteSupplierProposal(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	if err := h.Command.DeleteSupplierProposal(c.UserContext(), id, parseConfirmation(c)); err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.NoContent(c)
}

// RfqHistory handles GET /api/procurement/rfqs/:id/history.
func (h *ProcurementHandler) RfqHistory(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	events, err := h.Query.RfqHistory(c.UserContext(), id)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, events)
}
