package batch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a batch run.
type Status string

const (
	// StatusPending indicates the run is registered but not started.
	StatusPending Status = "pending"
	// StatusRunning is the only non-terminal state after start.
	StatusRunning Status = "running"
	// StatusCompleted is terminal: the run finished with zero failed records.
	StatusCompleted Status = "completed"
	// StatusCompletedWithErrors is terminal: the run finished, but some
	// records failed. No run-level fault occurred.
	StatusCompletedWithErrors Status = "completed_with_errors"
	// StatusFailed is terminal: a run-level fault aborted the run. Counters
	// reflect only records processed before the fault.
	StatusFailed Status = "failed"
	// StatusCancelled is terminal and reserved for caller-initiated aborts;
	// no executor transitions to it.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ErrTerminalStatus is returned by any attempted transition out of a
// terminal status.
var ErrTerminalStatus = errors.New("batch result is already in a terminal status")

// ErrNotPending is returned when Start is called on a run that already started.
var ErrNotPending = errors.New("batch result is not pending")

// Result tracks one batch run: identity, timing, counters, per-record
// errors and the status machine. Executors mutate it only through the
// outcome methods; the orchestrator owns the terminal transition. All
// methods are safe for concurrent use so pollers can snapshot a live run.
type Result struct {
	mu sync.Mutex

	JobID     string     `json:"job_id"`
	JobName   string     `json:"job_name"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    Status     `json:"status"`

	RecordsProcessed int `json:"records_processed"`
	RecordsSucceeded int `json:"records_succeeded"`
	RecordsFailed    int `json:"records_failed"`

	// Errors holds human-readable per-record failure descriptions in
	// processing order; a run-level fault reason is appended last.
	Errors []string `json:"errors,omitempty"`

	// OutputFilePath is set only by executors that produce a file artifact.
	OutputFilePath string `json:"output_file_path,omitempty"`
}

// NewPending registers a run without starting it.
func NewPending(jobName string) *Result {
	return &Result{
		JobID:   uuid.NewString(),
		JobName: jobName,
		Status:  StatusPending,
	}
}

// Start allocates and starts a run in one step.
func Start(jobName string) *Result {
	r := NewPending(jobName)
	_ = r.Begin()
	return r
}

// Begin transitions a pending run to running and stamps the start time.
func (r *Result) Begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != StatusPending {
		return fmt.Errorf("%w: status is %q", ErrNotPending, r.Status)
	}
	r.Status = StatusRunning
	r.StartTime = time.Now()
	return nil
}

// RecordSuccess counts one successfully processed record. Outcomes arriving
// after a terminal transition are dropped: a caller may cancel a run while
// its executor is still working, and a terminal result never changes.
func (r *Result) RecordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status.Terminal() {
		return
	}
	r.RecordsProcessed++
	r.RecordsSucceeded++
}

// RecordFailure counts one failed record and appends its description.
// Per-record failures never abort the run. Like RecordSuccess, it is a
// no-op once the run is terminal.
func (r *Result) RecordFailure(detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status.Terminal() {
		return
	}
	r.RecordsProcessed++
	r.RecordsFailed++
	r.Errors = append(r.Errors, detail)
}

// SetOutputPath records the artifact produced by the run. Dropped once the
// run is terminal.
func (r *Result) SetOutputPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status.Terminal() {
		return
	}
	r.OutputFilePath = path
}

// Complete fires the successful terminal transition: Completed when no
// record failed, CompletedWithErrors otherwise.
func (r *Result) Complete() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := StatusCompleted
	if r.RecordsFailed > 0 {
		next = StatusCompletedWithErrors
	}
	return r.finish(next, "")
}

// Fail fires the terminal transition for a run-level fault: storage
// unreachable, invalid configuration, executor crash. The reason is
// appended as the last error entry.
func (r *Result) Fail(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finish(StatusFailed, reason)
}

// Cancel fires the caller-initiated terminal transition.
func (r *Result) Cancel(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finish(StatusCancelled, reason)
}

// finish is the single terminal transition point. Callers hold r.mu.
func (r *Result) finish(next Status, reason string) error {
	if r.Status.Terminal() {
		return fmt.Errorf("%w: cannot move %q to %q", ErrTerminalStatus, r.Status, next)
	}
	if reason != "" {
		r.Errors = append(r.Errors, reason)
	}
	now := time.Now()
	r.EndTime = &now
	r.Status = next
	return nil
}

// Snapshot returns a detached copy of the result, safe to hand to pollers
// while the run is still mutating.
func (r *Result) Snapshot() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Result{
		JobID:            r.JobID,
		JobName:          r.JobName,
		StartTime:        r.StartTime,
		Status:           r.Status,
		RecordsProcessed: r.RecordsProcessed,
		RecordsSucceeded: r.RecordsSucceeded,
		RecordsFailed:    r.RecordsFailed,
		OutputFilePath:   r.OutputFilePath,
	}
	if r.EndTime != nil {
		end := *r.EndTime
		out.EndTime = &end
	}
	if len(r.Errors) > 0 {
		out.Errors = append([]string(nil), r.Errors...)
	}
	return out
}
