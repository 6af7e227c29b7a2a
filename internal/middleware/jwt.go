package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/medlink-api/internal/auth"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// TokenDecoder verifies access tokens.
type TokenDecoder interface {
	Decode(token string) (auth.Claims, error)
}

// JWTProtected returns a middleware that rejects requests without a valid bearer token.
// On success the caller identity is stored in the "user_id" (uint) and "user_role" locals.
func JWTProtected(tokens TokenDecoder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get(fiber.HeaderAuthorization)
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		tokenString, ok := extractBearer(authorization)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims, err := tokens.Decode(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				return utils.SendError(c, fiber.StatusUnauthorized, "token expired")
			}
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		storeClaims(c, claims)
		return c.Next()
	}
}

// JWTOptional attaches the caller identity when a valid bearer token is present
// and lets every request through otherwise.
func JWTOptional(tokens TokenDecoder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := extractBearer(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return c.Next()
		}
		if claims, err := tokens.Decode(tokenString); err == nil {
			storeClaims(c, claims)
		}
		return c.Next()
	}
}

func extractBearer(header string) (string, bool) {
	const bearer = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	return token, token != ""
}

func storeClaims(c *fiber.Ctx, claims auth.Claims) {
	c.Locals("user_id", claims.UserID)
	if role := strings.ToLower(strings.TrimSpace(claims.Role)); role != "" {
		c.Locals("user_role", role)
	}
}
