// Package events publishes provisioning job lifecycle events to a stream.
// Consumers use the stream for dashboards and alerting; the queue itself never
// depends on it.
package events

import (
	"context"
	"time"
)

// JobEvent is one lifecycle transition of a provisioning job.
type JobEvent struct {
	JobID      string    `json:"jobId"`
	UserID     int64     `json:"userId"`
	ServerID   int64     `json:"serverId"`
	Type       string    `json:"type"` // enqueued | completed | failed
	Attempts   int       `json:"attempts,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	EventEnqueued  = "enqueued"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Producer emits job events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; callers
	// on a hot path should fire from a goroutine.
	Emit(ctx context.Context, event *JobEvent) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}
