package nethttp

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
)

// Principal is the minimal authenticated caller this module resolves.
// Full authentication/authorization is out of scope; callers are trusted
// to sit behind a gateway that set these headers after verifying identity.
type Principal struct {
	TenantID uuid.UUID
	Role     string
	Subject  string
}

type principalContextKey struct{}

// ContextWithPrincipal attaches p to ctx.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the Principal attached by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// WithPrincipal resolves X-Tenant-Id/X-Principal-Role/X-Principal-Sub into
// a Principal and rejects the request with 401 when the tenant is missing.
func WithPrincipal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantRaw := c.Get(headerTenantID)
		if tenantRaw == "" {
			return WithError(c, apperr.UnauthorizedError{
				Code:    "P0008",
				Title:   "Tenant Required",
				Message: "X-Tenant-Id header is required",
			})
		}

		tenantID, err := uuid.Parse(tenantRaw)
		if err != nil {
			return WithError(c, apperr.UnauthorizedError{
				Code:    "P0008",
				Title:   "Tenant Required",
				Message: "X-Tenant-Id header must be a valid UUID",
			})
		}

		p := Principal{
			TenantID: tenantID,
			Role:     c.Get(headerPrincipalRole),
			Subject:  c.Get(headerPrincipalSub),
		}

		c.Locals("principal", p)
		c.SetUserContext(ContextWithPrincipal(c.UserContext(), p))

		return c.Next()
	}
}
