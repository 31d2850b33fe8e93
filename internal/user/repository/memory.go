package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"private-network-manager/backend/internal/user/domain"
)

// ErrDuplicateEmail is returned by MemoryRepository.Create when the email is taken.
var ErrDuplicateEmail = errors.New("email already exists")

// MemoryRepository is an in-memory user repository for tests and local runs.
// Safe for concurrent use.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.User
}

// NewMemoryRepository returns an empty in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, byID: make(map[int64]*domain.User)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u2 := *u
		return &u2, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			u2 := *u
			return &u2, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, ErrDuplicateEmail
		}
	}
	u2 := *u
	u2.ID = r.nextID
	r.nextID++
	if u2.CreatedAt.IsZero() {
		u2.CreatedAt = time.Now().UTC()
	}
	r.byID[u2.ID] = &u2
	out := u2
	return &out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id int64, email *string, role *domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	if email != nil {
		u.Email = *email
	}
	if role != nil {
		u.Role = *role
	}
	u2 := *u
	return &u2, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.byID))
	for id := int64(1); id < r.nextID; id++ {
		if u, ok := r.byID[id]; ok {
			u2 := *u
			out = append(out, &u2)
		}
	}
	return out, nil
}
