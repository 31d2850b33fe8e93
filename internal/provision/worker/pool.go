// Package worker runs the provisioning worker pool: a fixed set of goroutines
// draining the durable job queue with retries and backoff.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"private-network-manager/backend/internal/provision/events"
	"private-network-manager/backend/internal/provision/provisioner"
	"private-network-manager/backend/internal/provision/queue"
)

// Options tunes the pool. Zero values fall back to the defaults.
type Options struct {
	// Concurrency is how many workers poll the store. Default 5.
	Concurrency int
	// PollInterval is how long an idle worker sleeps between claims. Default 250ms.
	PollInterval time.Duration
	// Lease is how long a claimed job stays invisible to other workers.
	// Must exceed the longest expected provision call. Default 1m.
	Lease time.Duration
	// ProvisionTimeout bounds a single provision call. Default 30s.
	ProvisionTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
	if o.Lease <= 0 {
		o.Lease = time.Minute
	}
	if o.ProvisionTimeout <= 0 {
		o.ProvisionTimeout = 30 * time.Second
	}
	return o
}

// Pool consumes provisioning jobs. Jobs are independent; the pool guarantees
// at-least-once execution, never ordering.
type Pool struct {
	store   queue.Store
	policy  queue.Policy
	prov    provisioner.Provisioner
	produce events.Producer
	opts    Options
	wg      sync.WaitGroup
}

// NewPool returns a Pool draining store with the given provisioner. producer
// may be nil.
func NewPool(store queue.Store, policy queue.Policy, prov provisioner.Provisioner, producer events.Producer, opts Options) *Pool {
	return &Pool{
		store:   store,
		policy:  policy,
		prov:    prov,
		produce: producer,
		opts:    opts.withDefaults(),
	}
}

// Start launches the workers. They stop claiming when ctx is cancelled;
// in-flight jobs still run to completion. Call Wait to block until drained.
func (p *Pool) Start(ctx context.Context) {
	log.Printf("worker: starting %d workers", p.opts.Concurrency)
	for i := 0; i < p.opts.Concurrency; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := p.store.Claim(ctx, time.Now().UTC(), p.opts.Lease)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker %d: claim: %v", id, err)
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.opts.PollInterval):
			}
			continue
		}
		p.process(job.ID, job.UserID, job.ServerID, job.Attempts, job.MaxAttempts)
	}
}

// process runs one claimed job under a detached timeout context, so pool
// shutdown does not truncate an in-flight provision call.
func (p *Pool) process(jobID string, userID, serverID int64, attempt, maxAttempts int) {
	runCtx, cancel := context.WithTimeout(context.Background(), p.opts.ProvisionTimeout)
	defer cancel()

	err := p.prov.Provision(runCtx, userID, serverID)
	if err == nil {
		if err := p.store.Complete(runCtx, jobID); err != nil {
			log.Printf("worker: complete job %s: %v", jobID, err)
			return
		}
		if err := p.store.Trim(runCtx, p.policy.KeepCompleted, p.policy.KeepFailed); err != nil {
			log.Printf("worker: trim: %v", err)
		}
		events.EmitAsync(p.produce, &events.JobEvent{
			JobID: jobID, UserID: userID, ServerID: serverID,
			Type: events.EventCompleted, Attempts: attempt,
			OccurredAt: time.Now().UTC(),
		})
		log.Printf("worker: job %s completed (attempt %d)", jobID, attempt)
		return
	}

	if attempt >= maxAttempts {
		if derr := p.store.MarkDead(runCtx, jobID, err.Error()); derr != nil {
			log.Printf("worker: mark job %s dead: %v", jobID, derr)
			return
		}
		events.EmitAsync(p.produce, &events.JobEvent{
			JobID: jobID, UserID: userID, ServerID: serverID,
			Type: events.EventFailed, Attempts: attempt, Error: err.Error(),
			OccurredAt: time.Now().UTC(),
		})
		log.Printf("worker: job %s failed permanently after %d attempts: %v", jobID, attempt, err)
		return
	}

	delay := p.policy.Backoff(attempt)
	next := time.Now().UTC().Add(delay)
	if ferr := p.store.Fail(runCtx, jobID, err.Error(), next); ferr != nil {
		log.Printf("worker: defer job %s: %v", jobID, ferr)
		return
	}
	log.Printf("worker: job %s attempt %d/%d failed, retrying in %s: %v", jobID, attempt, maxAttempts, delay, err)
}
