package repository

import (
	"context"

	"private-network-manager/backend/internal/session/domain"
)

// Repository defines persistence for auth sessions. GetByID returns (nil, nil)
// when no row matches. Sessions are append-plus-revoke: no method deletes rows.
type Repository interface {
	Create(ctx context.Context, s *domain.AuthSession) error
	GetByID(ctx context.Context, id string) (*domain.AuthSession, error)
	// ListByUser returns all sessions for the user, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*domain.AuthSession, error)
	// Revoke sets revoked_at if not already set. Idempotent: revoking a revoked
	// session is a no-op, and concurrent revokes are a safe race.
	Revoke(ctx context.Context, id string) error
}
