package repository

import (
	"context"
	"sync"
	"time"

	"private-network-manager/backend/internal/subscription/domain"
)

// MemoryRepository is an in-memory subscription repository for tests and local runs.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byUser map[int64]*domain.Subscription
}

// NewMemoryRepository returns an empty in-memory subscription repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, byUser: make(map[int64]*domain.Subscription)}
}

func (r *MemoryRepository) Upsert(ctx context.Context, userID int64, start, expiry time.Time, quota int64) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if s, ok := r.byUser[userID]; ok {
		s.StartDate = start
		s.ExpiryDate = expiry
		s.Quota = quota
		s.UpdatedAt = now
		s2 := *s
		return &s2, nil
	}
	s := &domain.Subscription{
		ID:         r.nextID,
		UserID:     userID,
		StartDate:  start,
		ExpiryDate: expiry,
		Quota:      quota,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.nextID++
	r.byUser[userID] = s
	s2 := *s
	return &s2, nil
}

func (r *MemoryRepository) GetByUser(ctx context.Context, userID int64) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byUser[userID]; ok {
		s2 := *s
		return &s2, nil
	}
	return nil, nil
}
