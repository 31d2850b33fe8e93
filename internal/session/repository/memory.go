package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"private-network-manager/backend/internal/session/domain"
)

// MemoryRepository is an in-memory session repository for tests and local runs.
// Safe for concurrent use.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.AuthSession
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.AuthSession)}
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.AuthSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	if s2.CreatedAt.IsZero() {
		s2.CreatedAt = time.Now().UTC()
	}
	r.m[s2.ID] = &s2
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.AuthSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s2 := *s
		return &s2, nil
	}
	return nil, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.AuthSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuthSession
	for _, s := range r.m {
		if s.UserID == userID {
			s2 := *s
			out = append(out, &s2)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok && s.RevokedAt == nil {
		t := time.Now().UTC()
		s.RevokedAt = &t
	}
	return nil
}
