package repository

import (
	"context"

	"private-network-manager/backend/internal/user/domain"
)

// Repository defines persistence for users. Get methods return (nil, nil)
// when no row matches; errors are reserved for storage failures.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	// Update changes email and/or role; nil pointers leave the field untouched.
	// Returns the updated user, or nil if the user does not exist.
	Update(ctx context.Context, id int64, email *string, role *domain.Role) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}
