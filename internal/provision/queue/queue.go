package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"private-network-manager/backend/internal/provision/domain"
	"private-network-manager/backend/internal/provision/events"
)

// Policy holds the retry and retention knobs of the queue.
type Policy struct {
	// MaxAttempts is how many times a job is tried before it is marked failed.
	MaxAttempts int
	// BackoffBase is the delay before the second attempt; each further retry
	// doubles it.
	BackoffBase time.Duration
	// KeepCompleted and KeepFailed bound how many terminal jobs are retained.
	KeepCompleted int
	KeepFailed    int
}

// DefaultPolicy matches the service defaults: three attempts, 1s backoff base,
// 200 retained jobs per terminal state.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		BackoffBase:   time.Second,
		KeepCompleted: 200,
		KeepFailed:    200,
	}
}

// Backoff returns the delay before the next attempt after attempt failures
// (1-based): base, 2*base, 4*base and so on.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BackoffBase << (attempt - 1)
}

// Queue appends provisioning jobs to the durable store. Enqueue is synchronous
// and succeeds whether or not any worker is running; execution happens later.
type Queue struct {
	store    Store
	policy   Policy
	producer events.Producer
}

// NewQueue returns a Queue over the given store. producer may be nil.
func NewQueue(store Store, policy Policy, producer events.Producer) *Queue {
	return &Queue{store: store, policy: policy, producer: producer}
}

// Policy returns the queue's retry/retention policy, shared with the worker pool.
func (q *Queue) Policy() Policy {
	return q.policy
}

// Store returns the underlying job store.
func (q *Queue) Store() Store {
	return q.store
}

// Enqueue durably appends a job for the user/server pair and returns its id.
func (q *Queue) Enqueue(ctx context.Context, userID, serverID int64, triggeredBy domain.Trigger) (string, error) {
	now := time.Now().UTC()
	job := &domain.Job{
		ID:            uuid.New().String(),
		UserID:        userID,
		ServerID:      serverID,
		TriggeredBy:   triggeredBy,
		State:         domain.StatePending,
		MaxAttempts:   q.policy.MaxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := job.Validate(); err != nil {
		return "", err
	}
	if err := q.store.Append(ctx, job); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	events.EmitAsync(q.producer, &events.JobEvent{
		JobID:      job.ID,
		UserID:     userID,
		ServerID:   serverID,
		Type:       events.EventEnqueued,
		OccurredAt: now,
	})
	return job.ID, nil
}
