package repository

import (
	"context"
	"sync"

	"private-network-manager/backend/internal/audit/domain"
)

// MemoryRepository is an in-memory audit log repository for tests and local runs.
type MemoryRepository struct {
	mu    sync.Mutex
	items []*domain.AuditLog
}

// NewMemoryRepository returns an empty in-memory audit log repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a2 := *a
	r.items = append(r.items, &a2)
	return nil
}

func (r *MemoryRepository) ListRecent(ctx context.Context, limit int32) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int(limit)
	if n > len(r.items) {
		n = len(r.items)
	}
	out := make([]*domain.AuditLog, 0, n)
	for i := len(r.items) - 1; i >= 0 && len(out) < n; i-- {
		a2 := *r.items[i]
		out = append(out, &a2)
	}
	return out, nil
}
