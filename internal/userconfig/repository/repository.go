package repository

import (
	"context"

	"private-network-manager/backend/internal/userconfig/domain"
)

// Repository defines persistence for provisioning config artifacts.
type Repository interface {
	Save(ctx context.Context, userID, serverID int64, configText string) (*domain.UserConfig, error)
	// LatestByUser returns the most recent config for the user, or nil when none exists.
	LatestByUser(ctx context.Context, userID int64) (*domain.UserConfig, error)
}
