package batch

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
)

// Job names accepted by the orchestrator.
const (
	JobTransactionPosting  = "TransactionPosting"
	JobInterestCalculation = "InterestCalculation"
	JobStatementGeneration = "StatementGeneration"
	JobDataExportImport    = "DataExportImport"
)

// Params carries per-run inputs. Zero values select the executor defaults
// (current calendar month as the cycle window, export mode).
type Params struct {
	// Mode selects export or import for the DataExportImport job.
	Mode string `json:"mode,omitempty"`
	// InputPath is the interchange file consumed in import mode.
	InputPath string `json:"input_path,omitempty"`
	// CycleStart/CycleEnd bound the billing cycle for statement runs.
	CycleStart civil.Date `json:"cycle_start,omitempty"`
	CycleEnd   civil.Date `json:"cycle_end,omitempty"`
	// AsOf is the business date stamped on synthesized transactions.
	AsOf civil.Date `json:"as_of,omitempty"`
}

// Executor is the contract shared by the four batch jobs. Execute streams
// records, mutates the ledger through its store handle, and records every
// per-record outcome on res. A returned error is a run-level fault: the
// orchestrator converts it to a Failed terminal status and the remaining
// records are not processed.
type Executor interface {
	Name() string
	Execute(ctx context.Context, res *Result, params Params) error
}

// Orchestrator resolves job names to executors and owns the result
// lifecycle around each invocation.
type Orchestrator struct {
	executors map[string]Executor
	log       zerolog.Logger
}

// NewOrchestrator builds an orchestrator over the given executors.
func NewOrchestrator(log zerolog.Logger, executors ...Executor) *Orchestrator {
	byName := make(map[string]Executor, len(executors))
	for _, e := range executors {
		byName[e.Name()] = e
	}
	return &Orchestrator{executors: byName, log: log}
}

// Knows reports whether an executor is registered for the job name.
func (o *Orchestrator) Knows(jobName string) bool {
	_, ok := o.executors[jobName]
	return ok
}

// Run starts the named job and returns its terminal result. Unknown job
// names fail before a result is allocated.
func (o *Orchestrator) Run(ctx context.Context, jobName string, params Params) (*Result, error) {
	if _, ok := o.executors[jobName]; !ok {
		return nil, fmt.Errorf("unknown job name %q", jobName)
	}
	res := NewPending(jobName)
	o.RunPending(ctx, res, params)
	return res, nil
}

// RunPending executes a pre-registered pending run to a terminal status.
// Used by the async runner, which hands out the job id before scheduling.
func (o *Orchestrator) RunPending(ctx context.Context, res *Result, params Params) {
	exec, ok := o.executors[res.JobName]
	if !ok {
		_ = res.Fail(fmt.Sprintf("unknown job name %q", res.JobName))
		return
	}
	if err := res.Begin(); err != nil {
		o.log.Error().Err(err).Str("job_id", res.JobID).Msg("Run not in pending state")
		return
	}

	o.log.Info().
		Str("job_id", res.JobID).
		Str("job_name", res.JobName).
		Msg("Batch run started")

	err := o.invoke(ctx, exec, res, params)

	if err != nil {
		_ = res.Fail(err.Error())
	} else {
		_ = res.Complete()
	}

	snap := res.Snapshot()
	o.log.Info().
		Str("job_id", snap.JobID).
		Str("job_name", snap.JobName).
		Str("status", string(snap.Status)).
		Int("processed", snap.RecordsProcessed).
		Int("succeeded", snap.RecordsSucceeded).
		Int("failed", snap.RecordsFailed).
		Msg("Batch run finished")
}

// invoke shields the orchestrator from executor panics; a panic is a
// run-level fault like any other.
func (o *Orchestrator) invoke(ctx context.Context, exec Executor, res *Result, params Params) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("executor panic: %v", rec)
		}
	}()
	return exec.Execute(ctx, res, params)
}
