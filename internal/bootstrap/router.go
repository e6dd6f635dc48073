package bootstrap

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/http/in"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/nethttp"
)

// principalResolver builds the in.TenantResolver for every
// principal-bearing route: the tenant id nethttp.WithPrincipal already
// resolved onto the request is all it needs.
func (r *registry) principalResolver() in.TenantResolver {
	return func(c *fiber.Ctx) (*in.TenantHandlers, error) {
		principal, ok := nethttp.PrincipalFromContext(c.UserContext())
		if !ok {
			return nil, apperr.UnauthorizedError{
				Code:    constant.ErrUnauthorized.Error(),
				Title:   "Tenant Required",
				Message: "no principal resolved for this request",
			}
		}

		stack, err := r.getOrCreate(principal.TenantID)
		if err != nil {
			return nil, err
		}

		return stack.Handlers, nil
	}
}

// portalResolver builds the in.TenantResolver the public supplier-portal
// routes use: the request carries no X-Tenant-Id, so the tenant is
// looked up from the :token path param via Tokens (the redis-backed
// index invite-suppliers.go/resend-invite.go populate at issue time).
// A miss — the index entry expired, Redis is unavailable, or the token
// is simply wrong — surfaces as the same NotFound a bad token produces
// once inside a tenant's repository, rather than a distinct error shape.
func (r *registry) portalResolver() in.TenantResolver {
	return func(c *fiber.Ctx) (*in.TenantHandlers, error) {
		token := c.Params("token")

		if r.app.Tokens == nil {
			stack, err := r.getOrCreate(r.app.defaultTenantID)

			if err != nil {
				return nil, err
			}

			return stack.Handlers, nil
		}

		tenantID, ok, err := r.app.Tokens.TenantForToken(c.UserContext(), token)
		if err != nil || !ok {
			return nil, apperr.EntityNotFoundError{
				EntityType: "RfqSupplierInvite",
				Code:       constant.ErrInviteTokenNotFound.Error(),
				Title:      "Invite Not Found",
				Message:    "invite token not found or expired",
			}
		}

		stack, err := r.getOrCreate(tenantID)
		if err != nil {
			return nil, err
		}

		return stack.Handlers, nil
	}
}
