package nethttp

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WithRequestID stamps every request with an X-Request-Id, reusing a
// caller-supplied one if present so a gateway's ID survives end to end.
func WithRequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(headerCorrelationID)
		if rid == "" {
			rid = uuid.NewString()
		}

		c.Set(headerCorrelationID, rid)
		c.Request().Header.Set(headerCorrelationID, rid)

		return c.Next()
	}
}

// RequestID extracts the request ID stamped by WithRequestID.
func RequestID(c *fiber.Ctx) string {
	return c.Get(headerCorrelationID)
}
