// Package handler exposes user management over HTTP JSON: admin CRUD plus the
// member-facing config download.
package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	provisiondomain "private-network-manager/backend/internal/provision/domain"
	"private-network-manager/backend/internal/provision/queue"
	"private-network-manager/backend/internal/security"
	"private-network-manager/backend/internal/server/middleware"
	servernodedomain "private-network-manager/backend/internal/servernode/domain"
	servernoderepo "private-network-manager/backend/internal/servernode/repository"
	subscriptionrepo "private-network-manager/backend/internal/subscription/repository"
	"private-network-manager/backend/internal/user/domain"
	userrepo "private-network-manager/backend/internal/user/repository"
	userconfigrepo "private-network-manager/backend/internal/userconfig/repository"
)

const (
	minPasswordLen = 8
	// defaultQuotaBytes is granted when a new user is created without an
	// explicit quota (50 GB, matching the product default).
	defaultQuotaBytes = 50_000_000_000
	// defaultSubscriptionDays is the trial window for new users.
	defaultSubscriptionDays = 30
)

// HTTPHandler serves the /api/users routes.
type HTTPHandler struct {
	users         userrepo.Repository
	subscriptions subscriptionrepo.Repository
	servers       servernoderepo.Repository
	configs       userconfigrepo.Repository
	queue         *queue.Queue
	hasher        *security.Hasher
}

// NewHTTPHandler returns a user management handler.
func NewHTTPHandler(users userrepo.Repository, subscriptions subscriptionrepo.Repository, servers servernoderepo.Repository, configs userconfigrepo.Repository, q *queue.Queue, hasher *security.Hasher) *HTTPHandler {
	return &HTTPHandler{
		users:         users,
		subscriptions: subscriptions,
		servers:       servers,
		configs:       configs,
		queue:         q,
		hasher:        hasher,
	}
}

// Register mounts the user routes on router. Management routes require the
// admin role; the config download only requires authentication.
func (h *HTTPHandler) Register(router fiber.Router, authenticate, requireAdmin fiber.Handler) {
	router.Get("/me/config", authenticate, h.meConfig)

	admin := router.Group("", authenticate, requireAdmin)
	admin.Get("/", h.list)
	admin.Post("/", h.create)
	admin.Patch("/:id", h.update)
	admin.Put("/:id/subscription", h.putSubscription)
}

func userJSON(u *domain.User) fiber.Map {
	return fiber.Map{
		"id":        u.ID,
		"email":     u.Email,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
	}
}

func (h *HTTPHandler) list(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]fiber.Map, len(users))
	for i, u := range users {
		out[i] = userJSON(u)
	}
	return c.JSON(fiber.Map{"users": out})
}

type createUserRequest struct {
	Email              string     `json:"email"`
	Password           string     `json:"password"`
	Role               string     `json:"role"`
	SubscriptionExpiry *time.Time `json:"subscriptionExpiry"`
	Quota              int64      `json:"quota"`
	ServerID           int64      `json:"serverId"`
}

// create registers a user with a hashed password, grants the default
// subscription, and enqueues automatic provisioning onto the requested (or
// first online) server. Creation succeeds even when no server is available;
// provisionJobId is null then and an admin can provision later.
func (h *HTTPHandler) create(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !strings.Contains(email, "@") {
		return fiber.NewError(fiber.StatusBadRequest, "a valid email is required")
	}
	if len(req.Password) < minPasswordLen {
		return fiber.NewError(fiber.StatusBadRequest, "password must be at least 8 characters")
	}
	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleMember
	}
	if !role.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "unknown role")
	}
	if req.Quota < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "quota must be positive")
	}

	ctx := c.UserContext()
	existing, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return fiber.NewError(fiber.StatusConflict, "email already exists")
	}

	passwordHash, err := h.hasher.Hash([]byte(req.Password))
	if err != nil {
		return err
	}
	user, err := h.users.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	expiry := now.AddDate(0, 0, defaultSubscriptionDays)
	if req.SubscriptionExpiry != nil {
		expiry = *req.SubscriptionExpiry
	}
	quota := req.Quota
	if quota == 0 {
		quota = defaultQuotaBytes
	}
	sub, err := h.subscriptions.Upsert(ctx, user.ID, now, expiry, quota)
	if err != nil {
		return err
	}

	server, err := h.pickServer(ctx, req.ServerID)
	if err != nil {
		return err
	}
	var provisionJobID interface{}
	if server != nil {
		jobID, err := h.queue.Enqueue(ctx, user.ID, server.ID, provisiondomain.TriggerAutomatic)
		if err != nil {
			return err
		}
		provisionJobID = jobID
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": userJSON(user),
		"subscription": fiber.Map{
			"startDate":  sub.StartDate,
			"expiryDate": sub.ExpiryDate,
			"quota":      sub.Quota,
		},
		"provisionJobId": provisionJobID,
	})
}

// pickServer resolves the provisioning target for a new user: the explicitly
// requested server when given, otherwise the first online one. A nil result
// means no server is available and provisioning is skipped.
func (h *HTTPHandler) pickServer(ctx context.Context, serverID int64) (*servernodedomain.ServerNode, error) {
	if serverID > 0 {
		return h.servers.GetByID(ctx, serverID)
	}
	return h.servers.FirstOnline(ctx)
}

type updateUserRequest struct {
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (h *HTTPHandler) update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	var role *domain.Role
	if req.Role != nil {
		r := domain.Role(*req.Role)
		if !r.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "unknown role")
		}
		role = &r
	}
	user, err := h.users.Update(c.UserContext(), int64(id), req.Email, role)
	if err != nil {
		return err
	}
	if user == nil {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	return c.JSON(userJSON(user))
}

type subscriptionRequest struct {
	StartDate  *time.Time `json:"startDate"`
	ExpiryDate time.Time  `json:"expiryDate"`
	Quota      int64      `json:"quota"`
}

func (h *HTTPHandler) putSubscription(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	var req subscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if req.ExpiryDate.IsZero() {
		return fiber.NewError(fiber.StatusBadRequest, "expiryDate is required")
	}
	start := time.Now().UTC()
	if req.StartDate != nil {
		start = *req.StartDate
	}
	if !req.ExpiryDate.After(start) {
		return fiber.NewError(fiber.StatusBadRequest, "expiryDate must be after startDate")
	}

	ctx := c.UserContext()
	user, err := h.users.GetByID(ctx, int64(id))
	if err != nil {
		return err
	}
	if user == nil {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	sub, err := h.subscriptions.Upsert(ctx, user.ID, start, req.ExpiryDate, req.Quota)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":         sub.ID,
		"userId":     sub.UserID,
		"startDate":  sub.StartDate,
		"expiryDate": sub.ExpiryDate,
		"quota":      sub.Quota,
	})
}

// meConfig returns the caller's most recently rendered access configuration
// as plain text, ready to download.
func (h *HTTPHandler) meConfig(c *fiber.Ctx) error {
	userID, _, ok := middleware.AuthUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid authorization")
	}
	cfg, err := h.configs.LatestByUser(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if cfg == nil {
		return fiber.NewError(fiber.StatusNotFound, "no generated config for this user yet")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(cfg.ConfigText)
}
