package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/medlink-api/internal/observability"
)

const (
	headerCorrelationID = "X-Correlation-ID"
	headerRequestID     = "X-Request-ID"
	localCorrelationID  = "correlation_id"
	maxCorrelationID    = 128
)

// CorrelationID tags the request with the caller's X-Correlation-ID, falling
// back to X-Request-ID and then a fresh UUID. The id is echoed in the response,
// stored in Locals and bound to the user context so events carry it too.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := firstPrintable(c.Get(headerCorrelationID), c.Get(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(localCorrelationID, id)
		c.Set(headerCorrelationID, id)
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))
		return c.Next()
	}
}

// GetCorrelationID returns the id assigned by CorrelationID, or "" outside it.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(localCorrelationID).(string); ok {
		return id
	}
	return observability.CorrelationID(c.UserContext())
}

// firstPrintable picks the first candidate made only of visible ASCII.
func firstPrintable(candidates ...string) string {
	for _, raw := range candidates {
		id := strings.TrimSpace(raw)
		if id == "" || len(id) > maxCorrelationID {
			continue
		}
		if strings.IndexFunc(id, func(r rune) bool { return r < '!' || r > '~' }) >= 0 {
			continue
		}
		return id
	}
	return ""
}
