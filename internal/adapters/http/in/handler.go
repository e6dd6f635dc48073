// Package in implements the Command API Surface (C11): Fiber handlers
// that resolve a principal, parse and validate the request body, and
// dispatch straight to command.UseCase / query.UseCase. It never touches
// C5-C9 directly and never builds a repository itself, mirroring the
// teacher's http/in handler package (services/command, services/query
// injected as struct fields, one handler type per aggregate).
package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/services/command"
	"github.com/Lucasschwertz/procurement-core/internal/services/query"
	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
	"github.com/Lucasschwertz/procurement-core/pkg/nethttp"
)

// ProcurementHandler aggregates every command/query dispatch this surface
// needs. One instance is built per tenant by internal/bootstrap, matching
// the per-tenant construction discipline already used for C4's UseCase,
// the outbox Worker, and the sync Scheduler.
type ProcurementHandler struct {
	Command *command.UseCase
	Query   *query.UseCase

	Logger mlog.Logger
}

func (h *ProcurementHandler) logger() mlog.Logger {
	if h.Logger != nil {
		return h.Logger
	}

	return mlog.NoneLogger{}
}

// parseConfirmation reads the critical-action confirmation carried by a
// request: either ?confirm=true or an explicit X-Confirm-Token header,
// per spec §4.2/§6.1.
func parseConfirmation(c *fiber.Ctx) criticalaction.Confirmation {
	return criticalaction.Confirmation{
		Flag:  c.Query("confirm") == "true",
		Token: c.Get("X-Confirm-Token"),
	}
}

func idParam(c *fiber.Ctx, name string) (int64, error) {
	return nethttp.ParseIntParam(c, name)
}

const defaultPageLimit = 50

// pagingParams reads the ?limit=&cursor= keyset-pagination parameters
// every list endpoint accepts, defaulting limit rather than rejecting a
// missing one.
func pagingParams(c *fiber.Ctx) (limit int, cursor int64) {
	limit = c.QueryInt("limit", defaultPageLimit)
	cursor = int64(c.QueryInt("cursor", 0))

	return limit, cursor
}
