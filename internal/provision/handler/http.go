// Package handler exposes provisioning over HTTP JSON: enqueue a job, inspect
// recent jobs.
package handler

import (
	"github.com/gofiber/fiber/v2"

	"private-network-manager/backend/internal/audit"
	"private-network-manager/backend/internal/provision/domain"
	"private-network-manager/backend/internal/provision/queue"
	servernodedomain "private-network-manager/backend/internal/servernode/domain"
	servernoderepo "private-network-manager/backend/internal/servernode/repository"
	userrepo "private-network-manager/backend/internal/user/repository"
)

const maxListedJobs = 100

// HTTPHandler serves the /api/provision routes. All of them are admin-only;
// the route guards are applied by Register's middleware arguments.
type HTTPHandler struct {
	queue   *queue.Queue
	users   userrepo.Repository
	servers servernoderepo.Repository
	audit   audit.AuditLogger
}

// NewHTTPHandler returns a provisioning handler. auditLogger may be nil.
func NewHTTPHandler(q *queue.Queue, users userrepo.Repository, servers servernoderepo.Repository, auditLogger audit.AuditLogger) *HTTPHandler {
	return &HTTPHandler{queue: q, users: users, servers: servers, audit: auditLogger}
}

// Register mounts the provisioning routes on router behind the given guards.
func (h *HTTPHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	group := router.Group("", guards...)
	group.Post("/", h.enqueue)
	group.Get("/jobs", h.listJobs)
}

type enqueueRequest struct {
	UserID   int64 `json:"userId"`
	ServerID int64 `json:"serverId"` // optional; 0 means pick the first online server
}

// enqueue validates the target user and server, then appends a job and
// returns 202. The job runs later; the response only promises that it is
// durably queued.
func (h *HTTPHandler) enqueue(c *fiber.Ctx) error {
	var req enqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if req.UserID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "userId is required")
	}

	ctx := c.UserContext()
	user, err := h.users.GetByID(ctx, req.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}

	server, err := h.resolveServer(c, req.ServerID)
	if err != nil {
		return err
	}

	jobID, err := h.queue.Enqueue(ctx, user.ID, server.ID, domain.TriggerManual)
	if err != nil {
		return err
	}
	if h.audit != nil {
		h.audit.LogEvent(ctx, user.ID, "provision_enqueue", "provision", jobID)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"jobId":    jobID,
		"userId":   user.ID,
		"serverId": server.ID,
	})
}

// resolveServer returns the explicitly requested server (which must exist and
// be online) or, when none was requested, the first online server.
func (h *HTTPHandler) resolveServer(c *fiber.Ctx, serverID int64) (*servernodedomain.ServerNode, error) {
	ctx := c.UserContext()
	if serverID > 0 {
		server, err := h.servers.GetByID(ctx, serverID)
		if err != nil {
			return nil, err
		}
		if server == nil || server.Status != servernodedomain.StatusOnline {
			return nil, fiber.NewError(fiber.StatusBadRequest, "requested server is not available")
		}
		return server, nil
	}
	server, err := h.servers.FirstOnline(ctx)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "no server available")
	}
	return server, nil
}

func (h *HTTPHandler) listJobs(c *fiber.Ctx) error {
	state := domain.State(c.Query("state"))
	if state != "" && !state.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "unknown job state")
	}
	jobs, err := h.queue.Store().ListRecent(c.UserContext(), state, maxListedJobs)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, len(jobs))
	for i, j := range jobs {
		out[i] = fiber.Map{
			"id":          j.ID,
			"userId":      j.UserID,
			"serverId":    j.ServerID,
			"triggeredBy": j.TriggeredBy,
			"state":       j.State,
			"attempts":    j.Attempts,
			"lastError":   j.LastError,
			"createdAt":   j.CreatedAt,
			"updatedAt":   j.UpdatedAt,
		}
	}
	return c.JSON(fiber.Map{"jobs": out})
}
