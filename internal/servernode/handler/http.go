// Package handler exposes admin server-node management over HTTP JSON.
package handler

import (
	"github.com/gofiber/fiber/v2"

	"private-network-manager/backend/internal/servernode/domain"
	servernoderepo "private-network-manager/backend/internal/servernode/repository"
)

// HTTPHandler serves the /api/servers routes. Admin-only.
type HTTPHandler struct {
	servers servernoderepo.Repository
}

// NewHTTPHandler returns a server management handler.
func NewHTTPHandler(servers servernoderepo.Repository) *HTTPHandler {
	return &HTTPHandler{servers: servers}
}

// Register mounts the server routes on router behind the given guards.
func (h *HTTPHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	group := router.Group("", guards...)
	group.Get("/", h.list)
	group.Post("/", h.create)
}

func serverJSON(s *domain.ServerNode) fiber.Map {
	return fiber.Map{
		"id":              s.ID,
		"ip":              s.IP,
		"region":          s.Region,
		"status":          s.Status,
		"failoverEnabled": s.FailoverEnabled,
		"createdAt":       s.CreatedAt,
		"updatedAt":       s.UpdatedAt,
	}
}

func (h *HTTPHandler) list(c *fiber.Ctx) error {
	servers, err := h.servers.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]fiber.Map, len(servers))
	for i, s := range servers {
		out[i] = serverJSON(s)
	}
	return c.JSON(fiber.Map{"servers": out})
}

type createServerRequest struct {
	IP              string `json:"ip"`
	Region          string `json:"region"`
	Status          string `json:"status"`
	FailoverEnabled bool   `json:"failoverEnabled"`
}

func (h *HTTPHandler) create(c *fiber.Ctx) error {
	var req createServerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if req.IP == "" || req.Region == "" {
		return fiber.NewError(fiber.StatusBadRequest, "ip and region are required")
	}
	status := domain.Status(req.Status)
	if req.Status == "" {
		status = domain.StatusOffline
	}
	switch status {
	case domain.StatusOnline, domain.StatusOffline, domain.StatusMaintenance:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown status")
	}

	server, err := h.servers.Create(c.UserContext(), &domain.ServerNode{
		IP:              req.IP,
		Region:          req.Region,
		Status:          status,
		FailoverEnabled: req.FailoverEnabled,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(serverJSON(server))
}
