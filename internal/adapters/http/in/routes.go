package in

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
	"github.com/Lucasschwertz/procurement-core/pkg/nethttp"
)

// TenantHandlers is the full set of per-tenant handler bundles a
// TenantResolver hands back for one request: the command/query dispatch
// plus the tenant's own IntegrationsHandler (it carries that tenant's
// Scheduler).
type TenantHandlers struct {
	Procurement  *ProcurementHandler
	Integrations *IntegrationsHandler
}

// TenantResolver builds (or fetches from a cache) the tenant-scoped
// handler bundle for the principal nethttp.WithPrincipal already
// resolved onto c. internal/bootstrap supplies the real implementation —
// lazily constructing C3 repositories bound to the principal's tenant id,
// matching the per-tenant construction discipline every repository and
// background worker in this module already enforces. Tests that want a
// single fixed handler never set one (see defaultResolver below).
type TenantResolver func(c *fiber.Ctx) (*TenantHandlers, error)

const tenantHandlersLocalsKey = "procurement.tenantHandlers"

// withTenantHandlers resolves this request's tenant-scoped handler bundle
// and stashes it in Locals, once, right after the principal is resolved.
func withTenantHandlers(resolve TenantResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bundle, err := resolve(c)
		if err != nil {
			return nethttp.WithError(c, err)
		}

		c.Locals(tenantHandlersLocalsKey, bundle)

		return c.Next()
	}
}

func tenantHandlersFromLocals(c *fiber.Ctx) *TenantHandlers {
	return c.Locals(tenantHandlersLocalsKey).(*TenantHandlers)
}

// ph is the per-route accessor every handler registration below goes
// through, so the same route tree serves either a single fixed handler
// (tests, single-tenant callers) or a freshly tenant-scoped one built by
// a TenantResolver (internal/bootstrap's production wiring).
func ph(c *fiber.Ctx) *ProcurementHandler { return tenantHandlersFromLocals(c).Procurement }
func ih(c *fiber.Ctx) *IntegrationsHandler { return tenantHandlersFromLocals(c).Integrations }

// withAccessLog logs every request's method, path, status, and the
// request id WithRequestID stamped onto it — the one point every
// request is guaranteed to be logged with its id, per spec §4.11. The
// append-only StatusEvent trail (C10) does not itself carry a request
// id; threading one through would mean widening every command's
// signature for a field the domain model never asked for, so this
// access log is where request id and business log correlate instead.
func withAccessLog(logger mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		logger.Infof("request_id=%s method=%s path=%s status=%d", nethttp.RequestID(c), c.Method(), c.Path(), c.Response().StatusCode())

		return err
	}
}

// fixedResolver lifts a single statically-constructed handler pair into a
// TenantResolver, so NewRouter can route every request through the same
// ph(c)/ih(c) accessors whether or not a caller supplied a real
// per-tenant TenantResolver. This is what in_test.go's direct
// NewRouter(ph, ih, hh, logger) call now exercises.
func fixedResolver(procurement *ProcurementHandler, integrations *IntegrationsHandler) TenantResolver {
	bundle := &TenantHandlers{Procurement: procurement, Integrations: integrations}

	return func(c *fiber.Ctx) (*TenantHandlers, error) {
		return bundle, nil
	}
}

// wrapBody adapts a (p any, c *fiber.Ctx) error handler bound to a
// tenant-resolved ProcurementHandler into a plain fiber.Handler.
func wrapBody(s any, get func(c *fiber.Ctx) nethttp.DecodeHandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return nethttp.WithBody(s, get(c))(c)
	}
}

// NewRouter wires every C11 HTTP contract from spec §6.1 to the
// request's tenant-scoped handler bundle, mirroring the teacher's
// bootstrap/http NewRouter: one fiber.App, correlation-id/logging
// middleware applied once up front, routes grouped by aggregate below.
// The in-memory rate limiter allows each client key at most 10,000
// requests per fixed one-minute window and drops a key's entry once its
// window expires; the number of tracked keys is not capped.
//
// procurement/integrations are the fixed handler pair used when no
// resolve option is given (tests, single-tenant deployments).
// internal/bootstrap passes WithTenantResolver to build/cache a fresh,
// correctly tenant-scoped bundle per request instead, matching C3's
// construction-time tenant binding.
func NewRouter(procurement *ProcurementHandler, integrations *IntegrationsHandler, hh *HealthHandler, logger mlog.Logger, opts ...RouterOption) *fiber.App {
	cfg := routerConfig{resolve: fixedResolver(procurement, integrations)}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	f.Use(cors.New())
	f.Use(nethttp.WithRequestID())
	f.Use(withAccessLog(logger))
	f.Use(limiter.New(limiter.Config{
		Max:        10000,
		Expiration: time.Minute,
	}))

	// Health — must not require a resolved principal.
	f.Get("/health", hh.Health)

	api := f.Group("/api/procurement", nethttp.WithPrincipal(), withTenantHandlers(cfg.resolve))

	// Purchase requests ("solicitacoes").
	api.Post("/solicitacoes", wrapBody(new(CreatePurchaseRequestBody), func(c *fiber.Ctx) nethttp.DecodeHandlerFunc { return ph(c).CreatePurchaseRequest }))
	api.Get("/solicitacoes", func(c *fiber.Ctx) error { return ph(c).ListPurchaseRequests(c) })
	api.Get("/solicitacoes/:id", func(c *fiber.Ctx) error { return ph(c).GetPurchaseRequest(c) })
	api.Patch("/solicitacoes/:id", wrapBody(new(UpdatePurchaseRequestBody), func(c *fiber.Ctx) nethttp.DecodeHandlerFunc { return ph(c).UpdatePurchaseRequest }))
	api.Delete("/solicitacoes/:id", func(c *fiber.Ctx) error { return ph(c).CancelPurchaseRequest(c) })
	api.Get("/solicitacoes/:id/history", func(c *fiber.Ctx) error { return ph(c).PurchaseRequestHistory(c) })

	// RFQs ("cotacoes").
	api.Post("/rfqs", wrapBody(new(CreateRfqBody), func(c *fiber.Ctx) nethttp.DecodeHandlerFunc { return ph(c).CreateRfq }))
	api.Get("/rfqs/:id", func(c *fiber.Ctx) error { return ph(c).GetRfq(c) })
	api.Delete("/rfqs/:id", wrapBody(new(CancelRfqBody), func(c *fiber.Ctx) nethttp.DecodeHandlerFunc { return ph(c).CancelRfq }))
	api.Get("/rfqs/:id/history", func(c *fiber.Ctx) error { return ph(c).RfqHistory(c) })
	api.Post("/rfqs/:id/propostas", wrapBody(new(SaveSupplierQuoteBody), func(c *fiber.Ctx) nethttp.DecodeHandlerFunc { return ph(c).SaveSupplierQuote }))
	api.Post("/rfqs/:id/award", wrapBody(new(AwardRfqBody), func(c *fiber.Ctx) nethttp.DecodeHandlerFunc { return ph(c).AwardRfq }))
	api.Post("/cotacoes/:rfq_id/convites", wrapBody(new(InviteSuppliersBody), func(c *fiber.Ctx) nethttp.DecodeHandlerFunc { return ph(c).InviteSuppliers }))
	api.Post("/convites/:id/reenvio", wrapBody(new(ResendInviteBody), func(c *fiber.Ctx) nethttp.DecodeHandlerFunc { return ph(c).ResendInvite }))
	api.Delete("/propostas/:id", func(c *fiber.Ctx) error { return ph(c).DeleteSupplierProposal(c) })

	// Awards.
	api.Get("/awards/:id", func(c *fiber.Ctx) error { return ph(c).GetAward(c) })
	api.Delete("/awards/:id", func(c *fiber.Ctx) error { return ph(c).CancelAward(c) })
	api.Get("/awards/:id/history", func(c *fiber.Ctx) error { return ph(c).AwardHistory(c) })
	api.Post("/awards/:id/purchase-orders", wrapBody(new(CreatePurchaseOrderBody), func(c *fiber.Ctx) nethttp.DecodeHandlerFunc { return ph(c).CreatePurchaseOrderFromAward }))

	// Purchase orders.
	api.Get("/purchase-orders", func(c *fiber.Ctx) error { return ph(c).ListPurchaseOrders(c) })
	api.Get("/purchase-orders/:id", func(c *fiber.Ctx) error { return ph(c).GetPurchaseOrder(c) })
	api.Post("/purchase-orders/:id/approve", func(c *fiber.Ctx) error { return ph(c).ApprovePurchaseOrder(c) })
	api.Delete("/purchase-orders/:id", func(c *fiber.Ctx) error { return ph(c).CancelPurchaseOrder(c) })
	api.Post("/purchase-orders/:id/push-to-erp", func(c *fiber.Ctx) error { return ph(c).EnqueueErpPush(c) })
	api.Get("/purchase-orders/:id/history", func(c *fiber.Ctx) error { return ph(c).PurchaseOrderHistory(c) })

	// Sync/outbox observability and the admin pull trigger.
	api.Get("/sync-runs", func(c *fiber.Ctx) error { return ph(c).ListSyncRuns(c) })
	api.Get("/sync-runs/:id", func(c *fiber.Ctx) error { return ph(c).GetSyncRun(c) })
	api.Get("/watermarks", func(c *fiber.Ctx) error { return ph(c).GetWatermark(c) })
	api.Post("/integrations/sync", func(c *fiber.Ctx) error { return ih(c).TriggerSync(c) })

	// Supplier portal — public, no principal (a distinct root so it
	// never passes through the WithPrincipal group above). Tokens resolve
	// to a tenant through cfg.portalResolve, which falls back to
	// cfg.resolve; internal/bootstrap supplies a token-aware one when it
	// can determine the inviting tenant from the token itself.
	f.Get("/api/fornecedor/convite/:token", withTenantHandlers(cfg.getPortalResolve()), func(c *fiber.Ctx) error { return ph(c).GetSupplierInvite(c) })
	f.Post("/api/fornecedor/convite/:token/propostas", withTenantHandlers(cfg.getPortalResolve()),
		wrapBody(new(SubmitSupplierQuoteBody), func(c *fiber.Ctx) nethttp.DecodeHandlerFunc { return ph(c).SubmitSupplierQuote }))

	return f
}

type routerConfig struct {
	resolve       TenantResolver
	portalResolve TenantResolver
}

// RouterOption customizes NewRouter's tenant-dispatch behavior.
type RouterOption func(*routerConfig)

// WithTenantResolver makes every principal-bearing route under
// /api/procurement build its handler bundle through resolve instead of a
// single fixed pair. internal/bootstrap supplies one backed by a
// per-tenant cache of C3 repositories.
func WithTenantResolver(resolve TenantResolver) RouterOption {
	return func(cfg *routerConfig) { cfg.resolve = resolve }
}

// WithPortalTenantResolver makes the public supplier-portal routes
// resolve their handler bundle through resolve — typically one that
// looks the invite/quote token up in a cross-tenant index before
// constructing the tenant-scoped repositories, since these routes carry
// no X-Tenant-Id. Without this option the portal uses the same resolver
// as the principal-bearing routes (or the fixed pair), which is only
// correct for a single-tenant deployment.
func WithPortalTenantResolver(resolve TenantResolver) RouterOption {
	return func(cfg *routerConfig) { cfg.portalResolve = resolve }
}

func (cfg routerConfig) getPortalResolve() TenantResolver {
	if cfg.portalResolve != nil {
		return cfg.portalResolve
	}

	return cfg.resolve
}
