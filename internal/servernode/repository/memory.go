package repository

import (
	"context"
	"sync"
	"time"

	"private-network-manager/backend/internal/servernode/domain"
)

// MemoryRepository is an in-memory server-node repository for tests and local runs.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.ServerNode
}

// NewMemoryRepository returns an empty in-memory server-node repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, byID: make(map[int64]*domain.ServerNode)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*domain.ServerNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		s2 := *s
		return &s2, nil
	}
	return nil, nil
}

func (r *MemoryRepository) FirstOnline(ctx context.Context) (*domain.ServerNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := int64(1); id < r.nextID; id++ {
		if s, ok := r.byID[id]; ok && s.Status == domain.StatusOnline {
			s2 := *s
			return &s2, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.ServerNode) (*domain.ServerNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	s2.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	if s2.CreatedAt.IsZero() {
		s2.CreatedAt = now
	}
	s2.UpdatedAt = now
	r.byID[s2.ID] = &s2
	out := s2
	return &out, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*domain.ServerNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ServerNode, 0, len(r.byID))
	for id := int64(1); id < r.nextID; id++ {
		if s, ok := r.byID[id]; ok {
			s2 := *s
			out = append(out, &s2)
		}
	}
	return out, nil
}
