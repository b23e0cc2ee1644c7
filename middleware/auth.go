// middleware/auth.go
package middleware

import (
	"strings"

	"qube-quest/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	LocalUserID = "user_id"
	LocalRoles  = "user_roles"
	LocalEmail  = "user_email"

	RoleAdmin = "admin"
)

// UserContextMiddleware extracts the identity and roles set by the gateway.
// X-User-ID carries the user's wallet address; it is stored in checksummed form.
func UserContextMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			logger.Warn("❌ [USER_CTX] X-User-ID missing", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}
		addr, err := services.NormalizeAddress(userID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals(LocalUserID, addr)
		c.Locals(LocalRoles, splitRoles(c.Get("X-User-Roles")))
		c.Locals(LocalEmail, strings.TrimSpace(c.Get("X-User-Email")))

		logger.Debug("👤 [USER_CTX]", zap.String("user_id", addr), zap.String("path", c.Path()))
		return c.Next()
	}
}

// RequireRole rejects requests whose roles (set by UserContextMiddleware) lack role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals(LocalRoles).([]string)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": role + " role required"})
	}
}

// UserID returns the caller's checksummed address, or "" outside an authenticated route.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

func splitRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
