package nethttp

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
)

// WithError maps a domain/service error to its HTTP response, mirroring
// the teacher's type-switch in common/net/http/errors.go.
func WithError(c *fiber.Ctx, err error) error {
	switch e := err.(type) {
	case apperr.EntityNotFoundError:
		return NotFound(c, e.Code, e.Title, e.Error())
	case apperr.EntityConflictError:
		return Conflict(c, e.Code, e.Title, e.Error())
	case apperr.ValidationError:
		return BadRequest(c, ValidationKnownFieldsError{
			Code:    e.Code,
			Title:   e.Title,
			Message: e.Error(),
		})
	case apperr.UnprocessableOperationError:
		return UnprocessableEntity(c, e.Code, e.Title, e.Error())
	case apperr.UnauthorizedError:
		return Unauthorized(c, e.Code, e.Title, e.Error())
	case apperr.ForbiddenError:
		return Forbidden(c, e.Code, e.Title, e.Error())
	case apperr.ErpManagedReadonlyError:
		return UnprocessableEntity(c, e.Code, e.Title, e.Error())
	case apperr.FlowPolicyError:
		return c.Status(fiber.StatusConflict).JSON(FlowPolicyResponseError{
			Code:           e.Code,
			Title:          e.Title,
			Message:        e.Error(),
			Stage:          e.Stage,
			Status:         e.Status,
			AllowedActions: e.AllowedActions,
			PrimaryAction:  e.PrimaryAction,
		})
	case apperr.IntegrationError:
		return c.Status(fiber.StatusBadGateway).JSON(ResponseError{Code: e.Code, Title: e.Title, Message: e.Error()})
	case ValidationKnownFieldsError:
		return BadRequest(c, e)
	case ResponseError:
		var rErr ResponseError
		_ = errors.As(err, &rErr)

		return JSONResponseError(c, rErr)
	default:
		var iErr apperr.InternalServerError
		_ = errors.As(apperr.ValidateInternalError(err, ""), &iErr)

		return InternalServerError(c, iErr.Code, iErr.Title, iErr.Error())
	}
}
