package repository

import (
	"context"

	"private-network-manager/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs. Append-only.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	ListRecent(ctx context.Context, limit int32) ([]*domain.AuditLog, error)
}
