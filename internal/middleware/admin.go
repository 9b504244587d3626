package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// AdminTokenHeader carries the shared operator token for review routes.
const AdminTokenHeader = "X-Admin-Token"

// AdminToken rejects requests whose X-Admin-Token does not match token. An
// empty token disables the admin routes entirely.
func AdminToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return fiber.NewError(http.StatusForbidden, "admin access is not configured")
		}
		got := c.Get(AdminTokenHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return fiber.NewError(http.StatusUnauthorized, "invalid admin token")
		}
		return c.Next()
	}
}
