// Package worker runs audit pipelines off the request path.
//
// Two dispatchers are provided. Pool executes jobs on a bounded set of
// in-process goroutines; HTTPDispatcher hands each job to a separate
// background endpoint so the pipeline runs in another invocation, sharing
// nothing with the submitter except the audit store.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	// ErrQueueFull is returned when the pool's queue has no free slot.
	ErrQueueFull = errors.New("worker queue full")

	// ErrStopped is returned for jobs dispatched after Stop.
	ErrStopped = errors.New("worker pool stopped")
)

// Job is one audit to run.
type Job struct {
	AuditID string `json:"auditId"`
	Domain  string `json:"domain"`
}

// Handler executes a job. It owns all error handling; nothing is returned.
type Handler func(ctx context.Context, job Job)

// Dispatcher schedules jobs for asynchronous execution.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// Pool is a fixed-size goroutine pool fed by a bounded queue.
type Pool struct {
	handler Handler
	workers int
	jobs    chan Job

	mu      sync.RWMutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool returns a pool with the given concurrency and queue depth.
func NewPool(workers, queue int, h Handler) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	return &Pool{handler: h, workers: workers, jobs: make(chan Job, queue)}
}

// Start launches the workers. Jobs run under a context derived from ctx,
// never from the request that dispatched them.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
	log.Info().Int("workers", p.workers).Int("queue", cap(p.jobs)).Msg("worker pool started")
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(ctx, id, job)
	}
}

func (p *Pool) run(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("worker", id).Str("audit_id", job.AuditID).Msg("job panicked")
		}
	}()
	p.handler(ctx, job)
}

// Dispatch enqueues job without blocking.
func (p *Pool) Dispatch(_ context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued and running jobs to finish.
// When ctx expires first, running jobs are cancelled and ctx.Err() is
// returned once they exit.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.jobs)
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
