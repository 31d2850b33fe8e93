package repository

import (
	"context"
	"sync"
	"time"

	"private-network-manager/backend/internal/userconfig/domain"
)

// MemoryRepository is an in-memory user-config repository for tests and local runs.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	items  []*domain.UserConfig
}

// NewMemoryRepository returns an empty in-memory user-config repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) Save(ctx context.Context, userID, serverID int64, configText string) (*domain.UserConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &domain.UserConfig{
		ID:         r.nextID,
		UserID:     userID,
		ServerID:   serverID,
		ConfigText: configText,
		CreatedAt:  time.Now().UTC(),
	}
	r.nextID++
	r.items = append(r.items, c)
	c2 := *c
	return &c2, nil
}

func (r *MemoryRepository) LatestByUser(ctx context.Context, userID int64) (*domain.UserConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].UserID == userID {
			c2 := *r.items[i]
			return &c2, nil
		}
	}
	return nil, nil
}
