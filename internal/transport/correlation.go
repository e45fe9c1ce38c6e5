package transport

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lealta/campaign-engine/internal/observability"
)

// CorrelationMiddleware propagates the request id into the user context so
// service-layer logs carry the same correlation id as the HTTP access logs.
// Run it after the requestid middleware.
func CorrelationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		if correlationID == "" {
			if value, ok := c.Locals("requestid").(string); ok {
				correlationID = strings.TrimSpace(value)
			}
		}

		if correlationID != "" {
			c.SetUserContext(observability.WithCorrelationID(c.UserContext(), correlationID))
		}

		return c.Next()
	}
}
