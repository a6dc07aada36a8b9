package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sitegrid/sitegrid_backend/internal/utils"
)

// JWTAuth reads the token from the sg_token cookie or the Authorization
// header (mobile clients send a bearer token).
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies("sg_token")
		if tokenStr == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				tokenStr = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if tokenStr == "" {
			return fiber.ErrUnauthorized
		}

		token, err := utils.ParseJWT(secret, tokenStr)
		if err != nil || !token.Valid {
			return fiber.ErrUnauthorized
		}

		c.Locals("user", token)
		return c.Next()
	}
}
