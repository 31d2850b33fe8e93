// Package queue implements the durable provisioning job queue: an append-only
// store of jobs with leased claims, retry bookkeeping, and retention trimming.
package queue

import (
	"context"
	"time"

	"private-network-manager/backend/internal/provision/domain"
)

// Store persists provisioning jobs. Implementations must make Claim atomic so
// that two workers never hold the same job at once; everything else is plain
// row manipulation keyed by job id.
type Store interface {
	// Append adds a new job. The job must already carry its id and state.
	Append(ctx context.Context, job *domain.Job) error

	// Claim leases the oldest pending job whose NextAttemptAt is not after
	// now, marks it active, increments its attempt counter, and sets its
	// lease to now+lease. It also recovers jobs whose lease lapsed (a worker
	// crashed mid-job) by treating them as pending again. Returns (nil, nil)
	// when no job is ready.
	Claim(ctx context.Context, now time.Time, lease time.Duration) (*domain.Job, error)

	// Complete transitions an active job to completed.
	Complete(ctx context.Context, jobID string) error

	// Fail returns an active job to pending with the failure reason recorded
	// and the next attempt deferred until nextAttemptAt.
	Fail(ctx context.Context, jobID string, reason string, nextAttemptAt time.Time) error

	// MarkDead transitions an active job to failed, terminally.
	MarkDead(ctx context.Context, jobID string, reason string) error

	// Trim deletes all but the most recent keepCompleted completed jobs and
	// keepFailed failed jobs. Pending and active jobs are never trimmed.
	Trim(ctx context.Context, keepCompleted, keepFailed int) error

	// GetByID returns the job or (nil, nil) when absent.
	GetByID(ctx context.Context, jobID string) (*domain.Job, error)

	// ListRecent returns up to limit jobs in the given state, newest first.
	// An empty state returns jobs in any state.
	ListRecent(ctx context.Context, state domain.State, limit int32) ([]*domain.Job, error)
}
