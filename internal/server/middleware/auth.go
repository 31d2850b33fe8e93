// Package middleware holds the fiber middleware guarding protected routes.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"private-network-manager/backend/internal/security"
	userdomain "private-network-manager/backend/internal/user/domain"
)

const bearerPrefix = "bearer "

const (
	localsUserID = "auth.userID"
	localsRole   = "auth.role"
)

// Authenticate validates the Bearer access token and stores the caller's
// identity in the request locals. Absent, malformed, and invalid tokens all
// yield the same 401.
func Authenticate(tokens *security.TokenProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearer(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid authorization")
		}
		userID, role, err := tokens.ValidateAccess(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid authorization")
		}
		c.Locals(localsUserID, userID)
		c.Locals(localsRole, role)
		return c.Next()
	}
}

// RequireRole rejects callers whose authenticated role differs from role.
// Must run after Authenticate; without it the request is treated as
// unauthenticated.
func RequireRole(role userdomain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, got, ok := AuthUser(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid authorization")
		}
		if got != string(role) {
			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// AuthUser returns the authenticated caller stored by Authenticate.
func AuthUser(c *fiber.Ctx) (userID int64, role string, ok bool) {
	userID, uok := c.Locals(localsUserID).(int64)
	role, rok := c.Locals(localsRole).(string)
	return userID, role, uok && rok
}

// extractBearer returns the token from an Authorization header value, or ""
// when missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
