package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/utils"
)

// AdminKeyHeader carries the plaintext admin key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey checks the X-Admin-Key header against a bcrypt hash. An empty
// hash disables the admin routes.
func AdminKey(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			return fiber.NewError(fiber.StatusForbidden, "admin access is disabled")
		}
		if !utils.CheckSecret(hash, c.Get(AdminKeyHeader)) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid admin key")
		}
		return c.Next()
	}
}
