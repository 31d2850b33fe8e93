// Package domain defines the provisioning job aggregate.
package domain

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a provisioning job.
type State string

const (
	// StatePending means the job is waiting to be claimed by a worker. A
	// retryable failure puts the job back here with a future NextAttemptAt.
	StatePending State = "pending"
	// StateActive means a worker holds the job under a lease.
	StateActive State = "active"
	// StateCompleted is terminal: the provision side effect was applied.
	StateCompleted State = "completed"
	// StateFailed is terminal: the attempt limit was exhausted.
	StateFailed State = "failed"
)

// Valid reports whether s is a known job state.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateActive, StateCompleted, StateFailed:
		return true
	}
	return false
}

// Trigger records what caused the job to be enqueued.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerAutomatic Trigger = "automatic"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	return t == TriggerManual || t == TriggerAutomatic
}

// Job is one unit of provisioning work: apply the network configuration for a
// user on a server. Jobs are independent of each other; there is no ordering
// between jobs and re-applying a job's effect is harmless.
type Job struct {
	ID            string
	UserID        int64
	ServerID      int64
	TriggeredBy   Trigger
	State         State
	Attempts      int
	MaxAttempts   int
	LastError     string
	NextAttemptAt time.Time
	LeaseExpires  time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the invariant fields of a job before it is appended.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if j.UserID <= 0 {
		return fmt.Errorf("job user id is required")
	}
	if j.ServerID <= 0 {
		return fmt.Errorf("job server id is required")
	}
	if !j.TriggeredBy.Valid() {
		return fmt.Errorf("invalid trigger: %s", j.TriggeredBy)
	}
	if !j.State.Valid() {
		return fmt.Errorf("invalid state: %s", j.State)
	}
	if j.MaxAttempts <= 0 {
		return fmt.Errorf("job max attempts must be positive")
	}
	return nil
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.State == StateCompleted || j.State == StateFailed
}
