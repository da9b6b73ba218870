package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminRole is the role name, compared case-insensitively, that may manage processes
const AdminRole = "admin"

// AdminMiddleware checks the caller carries the admin role. Must run after AuthMiddleware.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		if len(claims.Roles) == 0 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: No roles assigned",
				"code":  "NOT_AUTHORIZED",
			})
		}

		for _, role := range claims.Roles {
			if strings.EqualFold(strings.TrimSpace(role), AdminRole) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied: Admin role required",
			"code":  "NOT_AUTHORIZED",
		})
	}
}
