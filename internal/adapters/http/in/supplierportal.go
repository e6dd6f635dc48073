package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Lucasschwertz/procurement-core/internal/services/command"
	"github.com/Lucasschwertz/procurement-core/pkg/nethttp"
)

// GetSupplierInvite handles GET /api/fornecedor/convite/{token}: the
// public portal landing page. It performs the lazy pending->opened
// transition (spec §4.4) before returning the invite, its priceable
// items, and any quote already on file.
func (h *ProcurementHandler) GetSupplierInvite(c *fiber.Ctx) error {
	token := c.Params("token")

	if _, err := h.Command.OpenSupplierInvite(c.UserContext(), token); err != nil {
		return nethttp.WithError(c, err)
	}

	view, err := h.Query.GetSupplierInviteByToken(c.UserContext(), token)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, view)
}

// SubmitSupplierQuoteBody is the public-portal wire body for
// POST /api/fornecedor/convite/{token}/propostas.
type SubmitSupplierQuoteBody struct {
	Currency string          `json:"currency" validate:"required"`
	Items    []QuoteItemBody `json:"items" validate:"required,min=1"`
}

// SubmitSupplierQuote handles
// POST /api/fornecedor/convite/{token}/propostas.
func (h *ProcurementHandler) SubmitSupplierQuote(p any, c *fiber.Ctx) error {
	body := p.(*SubmitSupplierQuoteBody)

	items, err := decodeQuoteItems(body.Items)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	quote, quoteItems, err := h.Command.SubmitSupplierQuote(c.UserContext(), command.SubmitSupplierQuoteInput{
		Token:    c.Params("token"),
		Currency: body.Currency,
		Items:    items,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.Created(c, fiber.Map{"quote": quote, "items": quoteItems})
}
