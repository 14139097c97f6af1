// Package middleware holds fiber middleware shared by the API routes.
package middleware

import (
	"strings"

	"academy/internal/services"

	"github.com/gofiber/fiber/v2"
)

const localUserID = "user_id"

// AuthRequired rejects requests without a valid "Bearer <jwt>" header and
// stores the caller's id for handlers to read with UserID.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme, token, found := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(localUserID, claims.UserID)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"error":   "unauthenticated",
	})
}

// UserID returns the authenticated caller, or "" outside AuthRequired.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}
