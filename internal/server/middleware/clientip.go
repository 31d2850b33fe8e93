package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type ctxKey int

const ctxKeyClientIP ctxKey = iota

// RecordClientIP stores the request's client IP in the user context so code
// below the HTTP layer (the audit logger) can read it without a fiber
// dependency.
func RecordClientIP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(context.WithValue(c.UserContext(), ctxKeyClientIP, c.IP()))
		return c.Next()
	}
}

// ContextIP extracts the client IP stored by RecordClientIP, or "unknown"
// when absent.
func ContextIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ctxKeyClientIP).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}
