// Package runner schedules batch runs asynchronously: submissions get a
// pending result back immediately, workers drive each run to a terminal
// status through the orchestrator, and the registry serves status polls.
// In-memory and channel-based, suitable for single-instance deployments.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/batch"
)

type submission struct {
	res    *batch.Result
	params batch.Params
}

// Runner owns the worker pool and the submission queue.
type Runner struct {
	orch     *batch.Orchestrator
	registry *Registry
	log      zerolog.Logger

	queue     chan submission
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
}

// New creates a runner over the orchestrator. bufferSize bounds how many
// runs can wait before Submit blocks; workerCount bounds concurrent runs.
func New(orch *batch.Orchestrator, registry *Registry, bufferSize, workerCount int, log zerolog.Logger) *Runner {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	r := &Runner{
		orch:      orch,
		registry:  registry,
		log:       log,
		queue:     make(chan submission, bufferSize),
		closeChan: make(chan struct{}),
	}
	for i := 0; i < workerCount; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Submit validates the job name, registers a pending run and queues it.
// The returned snapshot carries the job id the caller polls with.
func (r *Runner) Submit(ctx context.Context, jobName string, params batch.Params) (batch.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return batch.Result{}, fmt.Errorf("runner is stopped")
	}
	if !r.orch.Knows(jobName) {
		return batch.Result{}, fmt.Errorf("unknown job name %q", jobName)
	}

	res := batch.NewPending(jobName)
	r.registry.Add(res)

	select {
	case r.queue <- submission{res: res, params: params}:
		return res.Snapshot(), nil
	case <-ctx.Done():
		_ = res.Cancel("never scheduled: " + ctx.Err().Error())
		return batch.Result{}, ctx.Err()
	case <-r.closeChan:
		_ = res.Cancel("runner stopped before scheduling")
		return batch.Result{}, fmt.Errorf("runner is stopped")
	}
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.closeChan:
			// Drain what was accepted before the stop so no submission is
			// silently lost.
			for {
				select {
				case sub := <-r.queue:
					r.run(sub)
				default:
					return
				}
			}
		case sub := <-r.queue:
			r.run(sub)
		}
	}
}

func (r *Runner) run(sub submission) {
	snap := sub.res.Snapshot()
	if snap.Status != batch.StatusPending {
		// Cancelled while queued.
		r.log.Info().
			Str("job_id", snap.JobID).
			Str("status", string(snap.Status)).
			Msg("Skipping run no longer pending")
		return
	}
	r.orch.RunPending(context.Background(), sub.res, sub.params)
}

// Stop closes the queue and waits for in-flight and accepted runs to
// reach a terminal status, honoring ctx as the deadline.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.closeChan)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
