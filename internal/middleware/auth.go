package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/utils"
)

const (
	userContextKey   = "currentUserID"
	claimsContextKey = "currentClaims"
)

// AuthMiddleware validates bearer tokens and loads the authenticated customer ID into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		if err := authenticate(c, secret, token); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		return c.Next()
	}
}

// OptionalAuth loads the customer when a valid bearer token is present and
// passes anonymous requests through. A malformed or expired token is still
// rejected.
func OptionalAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Next()
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}
		if err := authenticate(c, secret, token); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func authenticate(c *fiber.Ctx, secret, token string) error {
	claims, err := utils.ParseToken(secret, token)
	if err != nil {
		return err
	}
	userID, err := claims.UserID()
	if err != nil {
		return err
	}

	c.Locals(userContextKey, userID)
	c.Locals(claimsContextKey, claims)
	return nil
}

// GetCurrentUserID extracts the authenticated customer ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetClaims returns the parsed token claims, if any.
func GetClaims(c *fiber.Ctx) (*utils.Claims, bool) {
	claims, ok := c.Locals(claimsContextKey).(*utils.Claims)
	return claims, ok
}
