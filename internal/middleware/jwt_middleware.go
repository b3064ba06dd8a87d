package middleware

import (
	"log"
	"strings"

	"nikki/internal/common"
	"nikki/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	userIDKey   = "user_id"
	usernameKey = "username"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", nil)
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'", nil)
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return unauthorized(c, "Invalid or expired token", err)
		}

		// JSON numbers decode as float64
		id, ok := claims[userIDKey].(float64)
		if !ok || id <= 0 {
			return unauthorized(c, "Token does not carry a user", common.ErrInvalidToken)
		}

		c.Locals(userIDKey, uint(id))
		c.Locals(usernameKey, claims[usernameKey])
		return c.Next()
	}
}

// UserID returns the authenticated user's id, or 0 outside AuthRequired.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(userIDKey).(uint)
	return id
}

func unauthorized(c *fiber.Ctx, message string, err error) error {
	body := fiber.Map{
		"message": message,
		"kind":    "invalid_token",
	}
	if err != nil {
		body["error"] = err.Error()
	}
	return c.Status(fiber.StatusUnauthorized).JSON(body)
}
