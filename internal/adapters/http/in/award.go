package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Lucasschwertz/procurement-core/internal/services/command"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/nethttp"
)

// AwardRfqBody is the wire body for POST /api/procurement/rfqs/{id}/award.
type AwardRfqBody struct {
	SupplierID   int64  `json:"supplier_id" validate:"required"`
	SupplierName string `json:"supplier_name" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
}

// AwardRfqResponse is the 201 body (spec §6.1): just the new award id.
type AwardRfqResponse struct {
	AwardID int64 `json:"award_id"`
}

// AwardRfq handles POST /api/procurement/rfqs/{id}/award.
func (h *ProcurementHandler) AwardRfq(p any, c *fiber.Ctx) error {
	body := p.(*AwardRfqBody)

	rfqID, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Rfq Id", Message: "id must be numeric"})
	}

	a, err := h.Command.AwardRfq(c.UserContext(), command.AwardRfqInput{
		RfqID:        rfqID,
		SupplierID:   body.SupplierID,
		SupplierName: body.SupplierName,
		Reason:       body.Reason,
	}, parseConfirmation(c))
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.Created(c, AwardRfqResponse{AwardID: a.ID})
}

// CancelAward handles DELETE /api/procurement/awards/:id.
func (h *ProcurementHandler) CancelAward(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	cancelled, err := h.Command.CancelAward(c.UserContext(), id, parseConfirmation(c))
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, cancelled)
}

// GetAward handles GET /api/procurement/awards/:id.
func (h *ProcurementHandler) GetAward(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	a, err := h.Query.GetAward(c.UserContext(), id)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, a)
}

// AwardHistory handles GET /api/procurement/awards/:id/history.
func (h *ProcurementHandler) AwardHistory(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{Code: constant.ErrBadRequest.Error(), Title: "Invalid Id", Message: "id must be numeric"})
	}

	events, err := h.Query.AwardHistory(c.UserContext(), id)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return nethttp.OK(c, events)
}
