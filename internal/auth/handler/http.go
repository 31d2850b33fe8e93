// Package handler exposes the auth service over HTTP JSON.
package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"private-network-manager/backend/internal/audit"
	"private-network-manager/backend/internal/auth/service"
	"private-network-manager/backend/internal/server/middleware"
)

// HTTPHandler serves the /api/auth routes.
type HTTPHandler struct {
	auth  *service.AuthService
	audit audit.AuditLogger
}

// NewHTTPHandler returns an auth handler. auditLogger may be nil.
func NewHTTPHandler(auth *service.AuthService, auditLogger audit.AuditLogger) *HTTPHandler {
	return &HTTPHandler{auth: auth, audit: auditLogger}
}

// Register mounts the auth routes on router. authenticate guards /sessions.
func (h *HTTPHandler) Register(router fiber.Router, authenticate fiber.Handler) {
	router.Post("/login", h.login)
	router.Post("/refresh", h.refresh)
	router.Post("/logout", h.logout)
	router.Get("/sessions", authenticate, h.sessions)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *HTTPHandler) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password, service.ClientMeta{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IPAddress: c.IP(),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}
	h.logEvent(c, res.User.ID, "login", "auth")
	return c.JSON(fiber.Map{
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
		"user": fiber.Map{
			"id":    res.User.ID,
			"email": res.User.Email,
			"role":  res.User.Role,
		},
	})
}

func (h *HTTPHandler) refresh(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	accessToken, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		// One body for every failure cause.
		if errors.Is(err, service.ErrInvalidToken) ||
			errors.Is(err, service.ErrInvalidSession) ||
			errors.Is(err, service.ErrTokenMismatch) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}
		return err
	}
	return c.JSON(fiber.Map{"accessToken": accessToken})
}

func (h *HTTPHandler) logout(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := h.auth.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return err
	}
	h.logEvent(c, 0, "logout", "auth")
	return c.JSON(fiber.Map{"success": true})
}

func (h *HTTPHandler) sessions(c *fiber.Ctx) error {
	userID, _, ok := middleware.AuthUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid authorization")
	}
	views, err := h.auth.ListSessions(c.UserContext(), userID)
	if err != nil {
		return err
	}
	sessions := make([]fiber.Map, len(views))
	for i, v := range views {
		sessions[i] = fiber.Map{
			"id":        v.ID,
			"userAgent": v.UserAgent,
			"ipAddress": v.IPAddress,
			"createdAt": v.CreatedAt,
			"expiresAt": v.ExpiresAt,
			"revokedAt": v.RevokedAt,
			"isActive":  v.IsActive,
		}
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *HTTPHandler) logEvent(c *fiber.Ctx, userID int64, action, resource string) {
	if h.audit == nil {
		return
	}
	h.audit.LogEvent(c.UserContext(), userID, action, resource, "")
}
