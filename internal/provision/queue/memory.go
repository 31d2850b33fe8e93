package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"private-network-manager/backend/internal/provision/domain"
)

// MemoryStore is an in-memory job store for tests and local runs. Safe for
// concurrent use.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

// NewMemoryStore returns an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*domain.Job)}
}

func (s *MemoryStore) Append(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	j2 := *job
	if j2.CreatedAt.IsZero() {
		j2.CreatedAt = time.Now().UTC()
	}
	j2.UpdatedAt = j2.CreatedAt
	s.jobs[j2.ID] = &j2
	return nil
}

func (s *MemoryStore) Claim(ctx context.Context, now time.Time, lease time.Duration) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidate *domain.Job
	for _, j := range s.jobs {
		ready := (j.State == domain.StatePending && !j.NextAttemptAt.After(now)) ||
			(j.State == domain.StateActive && !j.LeaseExpires.After(now))
		if !ready {
			continue
		}
		if candidate == nil || j.CreatedAt.Before(candidate.CreatedAt) {
			candidate = j
		}
	}
	if candidate == nil {
		return nil, nil
	}
	candidate.State = domain.StateActive
	candidate.Attempts++
	candidate.LeaseExpires = now.Add(lease)
	candidate.UpdatedAt = now
	j2 := *candidate
	return &j2, nil
}

func (s *MemoryStore) Complete(ctx context.Context, jobID string) error {
	return s.transition(jobID, func(j *domain.Job) {
		j.State = domain.StateCompleted
		j.LastError = ""
	})
}

func (s *MemoryStore) Fail(ctx context.Context, jobID string, reason string, nextAttemptAt time.Time) error {
	return s.transition(jobID, func(j *domain.Job) {
		j.State = domain.StatePending
		j.LastError = reason
		j.NextAttemptAt = nextAttemptAt
	})
}

func (s *MemoryStore) MarkDead(ctx context.Context, jobID string, reason string) error {
	return s.transition(jobID, func(j *domain.Job) {
		j.State = domain.StateFailed
		j.LastError = reason
	})
}

func (s *MemoryStore) transition(jobID string, apply func(*domain.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}
	apply(j)
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Trim(ctx context.Context, keepCompleted, keepFailed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trimState(domain.StateCompleted, keepCompleted)
	s.trimState(domain.StateFailed, keepFailed)
	return nil
}

func (s *MemoryStore) trimState(state domain.State, keep int) {
	var terminal []*domain.Job
	for _, j := range s.jobs {
		if j.State == state {
			terminal = append(terminal, j)
		}
	}
	if len(terminal) <= keep {
		return
	}
	sort.Slice(terminal, func(i, k int) bool { return terminal[i].UpdatedAt.After(terminal[k].UpdatedAt) })
	for _, j := range terminal[keep:] {
		delete(s.jobs, j.ID)
	}
}

func (s *MemoryStore) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[jobID]; ok {
		j2 := *j
		return &j2, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, state domain.State, limit int32) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Job
	for _, j := range s.jobs {
		if state != "" && j.State != state {
			continue
		}
		j2 := *j
		out = append(out, &j2)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}
