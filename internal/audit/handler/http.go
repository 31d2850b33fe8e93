// Package handler exposes audit log inspection over HTTP JSON.
package handler

import (
	"github.com/gofiber/fiber/v2"

	auditrepo "private-network-manager/backend/internal/audit/repository"
)

const defaultLimit = 50
const maxLimit = 500

// HTTPHandler serves the /api/audit route. Admin-only.
type HTTPHandler struct {
	repo auditrepo.Repository
}

// NewHTTPHandler returns an audit inspection handler.
func NewHTTPHandler(repo auditrepo.Repository) *HTTPHandler {
	return &HTTPHandler{repo: repo}
}

// Register mounts the audit route on router behind the given guards.
func (h *HTTPHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Get("/", append(guards, h.list)...)
}

func (h *HTTPHandler) list(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		return fiber.NewError(fiber.StatusBadRequest, "limit out of range")
	}
	entries, err := h.repo.ListRecent(c.UserContext(), int32(limit))
	if err != nil {
		return err
	}
	out := make([]fiber.Map, len(entries))
	for i, e := range entries {
		out[i] = fiber.Map{
			"id":        e.ID,
			"userId":    e.UserID,
			"action":    e.Action,
			"resource":  e.Resource,
			"ip":        e.IP,
			"metadata":  e.Metadata,
			"createdAt": e.CreatedAt,
		}
	}
	return c.JSON(fiber.Map{"entries": out})
}
