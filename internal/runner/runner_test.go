package runner

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/batch"
)

// fakeExecutor records successes and optionally blocks until released.
type fakeExecutor struct {
	name    string
	records int
	block   chan struct{}
}

func (f *fakeExecutor) Name() string { return f.name }

func (f *fakeExecutor) Execute(ctx context.Context, res *batch.Result, _ batch.Params) error {
	if f.block != nil {
		<-f.block
	}
	for i := 0; i < f.records; i++ {
		res.RecordSuccess()
	}
	return nil
}

func newTestRunner(exec batch.Executor) (*Runner, *Registry) {
	reg := NewRegistry()
	orch := batch.NewOrchestrator(zerolog.Nop(), exec)
	return New(orch, reg, 4, 1, zerolog.Nop()), reg
}

func waitTerminal(t *testing.T, reg *Registry, jobID string) batch.Result {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		snap, err := reg.Get(jobID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if snap.Status.Terminal() {
			return snap
		}
		select {
		case <-deadline:
			t.Fatalf("run %s never reached a terminal status (last: %s)", jobID, snap.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRunnerSubmitAndPoll(t *testing.T) {
	exec := &fakeExecutor{name: batch.JobTransactionPosting, records: 3}
	r, reg := newTestRunner(exec)
	defer r.Stop(context.Background())

	snap, err := r.Submit(context.Background(), batch.JobTransactionPosting, batch.Params{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if snap.JobID == "" {
		t.Fatal("Expected a job ID from Submit")
	}

	final := waitTerminal(t, reg, snap.JobID)
	if final.Status != batch.StatusCompleted {
		t.Errorf("Expected status %q, got %q", batch.StatusCompleted, final.Status)
	}
	if final.RecordsProcessed != 3 {
		t.Errorf("Expected 3 processed, got %d", final.RecordsProcessed)
	}
}

func TestRunnerRejectsUnknownJob(t *testing.T) {
	r, _ := newTestRunner(&fakeExecutor{name: batch.JobTransactionPosting})
	defer r.Stop(context.Background())

	if _, err := r.Submit(context.Background(), "NoSuchJob", batch.Params{}); err == nil {
		t.Fatal("Expected an error for an unknown job name")
	}
}

func TestRunnerStopDrainsQueue(t *testing.T) {
	exec := &fakeExecutor{name: batch.JobInterestCalculation, records: 1}
	r, reg := newTestRunner(exec)

	var ids []string
	for i := 0; i < 3; i++ {
		snap, err := r.Submit(context.Background(), batch.JobInterestCalculation, batch.Params{})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		ids = append(ids, snap.JobID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	for _, id := range ids {
		snap, err := reg.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !snap.Status.Terminal() {
			t.Errorf("Expected run %s to be terminal after Stop, got %q", id, snap.Status)
		}
	}

	if _, err := r.Submit(context.Background(), batch.JobInterestCalculation, batch.Params{}); err == nil {
		t.Error("Expected Submit to fail after Stop")
	}
}

func TestRegistryCancelQueuedRun(t *testing.T) {
	block := make(chan struct{})
	exec := &fakeExecutor{name: batch.JobStatementGeneration, records: 1, block: block}
	r, reg := newTestRunner(exec)

	// First run occupies the single worker; the second stays queued.
	first, err := r.Submit(context.Background(), batch.JobStatementGeneration, batch.Params{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	second, err := r.Submit(context.Background(), batch.JobStatementGeneration, batch.Params{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := reg.Cancel(second.JobID, "operator abort"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	close(block)

	final := waitTerminal(t, reg, second.JobID)
	if final.Status != batch.StatusCancelled {
		t.Errorf("Expected status %q, got %q", batch.StatusCancelled, final.Status)
	}

	firstFinal := waitTerminal(t, reg, first.JobID)
	if firstFinal.Status != batch.StatusCompleted {
		t.Errorf("Expected first run to complete, got %q", firstFinal.Status)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get("nope"); err != ErrRunNotFound {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	if err := reg.Cancel("nope", "x"); err != ErrRunNotFound {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}
