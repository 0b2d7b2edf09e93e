package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CronAuth guards the trigger endpoint with a bearer-style shared secret.
// A bad or missing secret is rejected with a bare 401 before any campaign is
// touched; the trigger is a machine, not a browser, so no error body is owed.
func CronAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).Send(nil)
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).Send(nil)
		}

		if subtle.ConstantTimeCompare([]byte(tokenParts[1]), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).Send(nil)
		}

		return c.Next()
	}
}
