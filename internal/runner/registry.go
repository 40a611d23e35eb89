package runner

import (
	"errors"
	"sort"
	"sync"

	"github.com/dvloznov/cardcycle/internal/batch"
)

// ErrRunNotFound is returned when no run with the given id is registered.
var ErrRunNotFound = errors.New("run not found")

// Registry tracks every run handed to the runner, live and terminal. Runs
// are kept in memory and lost on restart; the registry exists so pollers
// can observe a run while its executor is still mutating it.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*batch.Result
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*batch.Result)}
}

// Add registers a run under its job id.
func (r *Registry) Add(res *batch.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[res.JobID] = res
}

// Get returns a detached snapshot of the identified run.
func (r *Registry) Get(jobID string) (batch.Result, error) {
	r.mu.RLock()
	res, ok := r.runs[jobID]
	r.mu.RUnlock()
	if !ok {
		return batch.Result{}, ErrRunNotFound
	}
	return res.Snapshot(), nil
}

// List returns snapshots of every registered run, newest submission first.
func (r *Registry) List() []batch.Result {
	r.mu.RLock()
	out := make([]batch.Result, 0, len(r.runs))
	for _, res := range r.runs {
		out = append(out, res.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].JobID < out[j].JobID
	})
	return out
}

// Cancel fires the caller-initiated abort on a registered run. The run
// must still be live; terminal runs return batch.ErrTerminalStatus.
func (r *Registry) Cancel(jobID, reason string) error {
	r.mu.RLock()
	res, ok := r.runs[jobID]
	r.mu.RUnlock()
	if !ok {
		return ErrRunNotFound
	}
	return res.Cancel(reason)
}
