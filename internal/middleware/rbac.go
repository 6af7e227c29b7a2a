package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// RequireRole admits callers whose account role is one of roles. It must run
// after JWTProtected or JWTOptional, which store the lowercased role. With no
// roles it only demands an authenticated caller.
func RequireRole(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		id, _ := c.Locals("user_id").(uint)
		role := roleFromLocals(c)
		if id == 0 || role == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func roleFromLocals(c *fiber.Ctx) models.Role {
	role, _ := c.Locals("user_role").(string)
	return models.Role(role)
}
