package repository

import (
	"context"
	"time"

	"private-network-manager/backend/internal/subscription/domain"
)

// Repository defines persistence for subscriptions; one row per user.
type Repository interface {
	Upsert(ctx context.Context, userID int64, start, expiry time.Time, quota int64) (*domain.Subscription, error)
	// GetByUser returns the user's subscription, or nil when none exists.
	GetByUser(ctx context.Context, userID int64) (*domain.Subscription, error)
}
