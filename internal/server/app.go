// Package server assembles the HTTP application: routes, guards, and the
// JSON error boundary.
package server

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"private-network-manager/backend/internal/audit"
	audithandler "private-network-manager/backend/internal/audit/handler"
	auditrepo "private-network-manager/backend/internal/audit/repository"
	authhandler "private-network-manager/backend/internal/auth/handler"
	authservice "private-network-manager/backend/internal/auth/service"
	provisionhandler "private-network-manager/backend/internal/provision/handler"
	"private-network-manager/backend/internal/provision/queue"
	"private-network-manager/backend/internal/security"
	"private-network-manager/backend/internal/server/middleware"
	servernodehandler "private-network-manager/backend/internal/servernode/handler"
	servernoderepo "private-network-manager/backend/internal/servernode/repository"
	subscriptionrepo "private-network-manager/backend/internal/subscription/repository"
	userdomain "private-network-manager/backend/internal/user/domain"
	userhandler "private-network-manager/backend/internal/user/handler"
	userrepo "private-network-manager/backend/internal/user/repository"
	userconfigrepo "private-network-manager/backend/internal/userconfig/repository"
)

// Pinger reports backing-store reachability for the health route (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds the services and repositories the HTTP routes need.
type Deps struct {
	Tokens        *security.TokenProvider
	Auth          *authservice.AuthService
	Queue         *queue.Queue
	Users         userrepo.Repository
	Servers       servernoderepo.Repository
	Subscriptions subscriptionrepo.Repository
	UserConfigs   userconfigrepo.Repository
	Hasher        *security.Hasher
	// AuditRepo backs the /api/audit inspection route; may be nil to disable it.
	AuditRepo auditrepo.Repository
	// Audit may be nil; then nothing is audited.
	Audit audit.AuditLogger
	// Pinger may be nil; then the health route skips the DB check.
	Pinger Pinger
}

// NewApp builds the fiber application with all routes registered.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	app.Use(middleware.RecordClientIP())

	authenticate := middleware.Authenticate(deps.Tokens)
	requireAdmin := middleware.RequireRole(userdomain.RoleAdmin)

	api := app.Group("/api")
	api.Get("/health", healthHandler(deps.Pinger))

	authhandler.NewHTTPHandler(deps.Auth, deps.Audit).
		Register(api.Group("/auth"), authenticate)
	provisionhandler.NewHTTPHandler(deps.Queue, deps.Users, deps.Servers, deps.Audit).
		Register(api.Group("/provision"), authenticate, requireAdmin)
	userhandler.NewHTTPHandler(deps.Users, deps.Subscriptions, deps.Servers, deps.UserConfigs, deps.Queue, deps.Hasher).
		Register(api.Group("/users"), authenticate, requireAdmin)
	servernodehandler.NewHTTPHandler(deps.Servers).
		Register(api.Group("/servers"), authenticate, requireAdmin)
	if deps.AuditRepo != nil {
		audithandler.NewHTTPHandler(deps.AuditRepo).
			Register(api.Group("/audit"), authenticate, requireAdmin)
	}

	return app
}

// errorHandler renders every error as a JSON body with a single message
// field. Unexpected errors are logged and masked.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}
	log.Printf("http: %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
}

func healthHandler(pinger Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if pinger != nil {
			if err := pinger.PingContext(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false})
			}
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}
