package repository

import (
	"context"

	"private-network-manager/backend/internal/servernode/domain"
)

// Repository defines persistence for server nodes. Get methods return
// (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.ServerNode, error)
	// FirstOnline returns the lowest-id online server, or nil when none is online.
	FirstOnline(ctx context.Context) (*domain.ServerNode, error)
	Create(ctx context.Context, s *domain.ServerNode) (*domain.ServerNode, error)
	List(ctx context.Context) ([]*domain.ServerNode, error)
}
