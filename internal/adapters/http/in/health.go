package in

import (
	"database/sql"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/circuitbreaker"
)

// HealthHandler answers GET /health without requiring a principal (spec
// §6.1), reporting DB reachability, the running environment, and the
// outbox worker's circuit breaker state so an operator sees ERP
// connectivity health in the same place.
type HealthHandler struct {
	DB      *sql.DB
	Breaker *circuitbreaker.ErpBreaker
	Env     string
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status  string `json:"status"`
	DB      string `json:"db"`
	Env     string `json:"env"`
	Worker  string `json:"worker"`
	Metrics string `json:"metrics"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	dbStatus := "ok"

	if h.DB != nil {
		if err := h.DB.PingContext(c.UserContext()); err != nil {
			dbStatus = "unreachable"
		}
	}

	workerStatus := "unknown"
	if h.Breaker != nil {
		workerStatus = h.Breaker.State().String()
	}

	env := h.Env
	if env == "" {
		env = os.Getenv("ENV_NAME")
	}

	status := "healthy"
	if dbStatus != "ok" {
		status = "degraded"
	}

	return c.Status(fiber.StatusOK).JSON(HealthResponse{
		Status:  status,
		DB:      dbStatus,
		Env:     env,
		Worker:  workerStatus,
		Metrics: "enabled",
	})
}
