package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID echoes a caller-supplied request identifier or mints one, and
// stores it in locals for logging.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(RequestIDHeader, reqID)
		c.Locals(RequestIDHeader, reqID)

		return c.Next()
	}
}

// GetRequestID returns the identifier stored by RequestID, if any.
func GetRequestID(c *fiber.Ctx) string {
	reqID, _ := c.Locals(RequestIDHeader).(string)
	return reqID
}
