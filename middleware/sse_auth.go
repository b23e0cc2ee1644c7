// middleware/sse_auth.go
package middleware

import (
	"context"
	"strings"

	"qube-quest/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TokenValidator checks an end-user access token. *services.AuthServiceClient implements it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken, deviceID string) (*services.ValidateResponse, error)
}

// SSEAuthMiddleware authenticates EventSource requests, which cannot carry headers,
// from the `token` and `device_id` query params. Requests without a token fall
// through to the gateway user context.
func SSEAuthMiddleware(validator TokenValidator, logger *zap.Logger) fiber.Handler {
	gateway := UserContextMiddleware(logger)

	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		if accessToken == "" {
			return gateway(c)
		}
		if validator == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "query token auth is not configured"})
		}
		deviceID := strings.TrimSpace(c.Query("device_id"))
		if deviceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		resp, err := validator.ValidateToken(c.UserContext(), accessToken, deviceID)
		if err != nil {
			logger.Warn("[SSEAuth] ❌ validation failed", zap.String("device_id", deviceID), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		addr, err := services.NormalizeAddress(resp.UserID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		c.Locals(LocalUserID, addr)
		c.Locals(LocalRoles, resp.Roles)
		logger.Debug("[SSEAuth] ✅ authenticated", zap.String("user_id", addr), zap.String("device_id", resp.DeviceID))
		return c.Next()
	}
}
