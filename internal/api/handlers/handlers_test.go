package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/batch"
	"github.com/dvloznov/cardcycle/internal/runner"
)

type noopExecutor struct{ name string }

func (e *noopExecutor) Name() string { return e.name }

func (e *noopExecutor) Execute(_ context.Context, res *batch.Result, _ batch.Params) error {
	res.RecordSuccess()
	return nil
}

func newTestMux(t *testing.T) (*http.ServeMux, *runner.Registry) {
	t.Helper()
	reg := runner.NewRegistry()
	orch := batch.NewOrchestrator(zerolog.Nop(), &noopExecutor{name: batch.JobTransactionPosting})
	r := runner.New(orch, reg, 4, 1, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.Stop(ctx)
	})

	mux := http.NewServeMux()
	NewJobsHandler(r, reg).Route(mux)
	return mux, reg
}

func TestSubmitAndGetJob(t *testing.T) {
	mux, reg := newTestMux(t)

	body := `{"job_name":"TransactionPosting"}`
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var submitted batch.Result
	if err := json.NewDecoder(rec.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if submitted.JobID == "" {
		t.Fatal("Expected a job ID in the response")
	}

	// Wait for the run to finish, then poll it over HTTP.
	deadline := time.After(5 * time.Second)
	for {
		snap, err := reg.Get(submitted.JobID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if snap.Status.Terminal() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("run never finished")
		case <-time.After(5 * time.Millisecond):
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/"+submitted.JobID, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var polled batch.Result
	if err := json.NewDecoder(rec.Body).Decode(&polled); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if polled.Status != batch.StatusCompleted || polled.RecordsProcessed != 1 {
		t.Errorf("Expected a completed run with 1 record, got %+v", polled)
	}
}

func TestSubmitUnknownJob(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"job_name":"NoSuchJob"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestListJobs(t *testing.T) {
	mux, _ := newTestMux(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"job_name":"TransactionPosting"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("submit %d failed: %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Jobs  []batch.Result `json:"jobs"`
		Count int            `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.Count != 2 || len(resp.Jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", resp.Count)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
