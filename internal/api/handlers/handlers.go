// Package handlers exposes the batch engine to operators and the
// administrative application: submit a run, poll its result, cancel it.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dvloznov/cardcycle/internal/api/middleware"
	"github.com/dvloznov/cardcycle/internal/batch"
	"github.com/dvloznov/cardcycle/internal/logger"
	"github.com/dvloznov/cardcycle/internal/runner"
)

// JobsHandler handles batch run endpoints. Handlers log through the
// request-scoped logger the RequestID middleware stores in the context.
type JobsHandler struct {
	runner   *runner.Runner
	registry *runner.Registry
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(r *runner.Runner, reg *runner.Registry) *JobsHandler {
	return &JobsHandler{runner: r, registry: reg}
}

// submitRequest is the POST /api/jobs body. Dates use YYYY-MM-DD.
type submitRequest struct {
	JobName string       `json:"job_name"`
	Params  batch.Params `json:"params"`
}

// SubmitJob handles POST /api/jobs
func (h *JobsHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.JobName == "" {
		middleware.WriteError(w, http.StatusBadRequest, "job_name is required")
		return
	}

	snap, err := h.runner.Submit(r.Context(), req.JobName, req.Params)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Str("job_name", req.JobName).Msg("Run submission rejected")
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, snap)
}

// GetJob handles GET /api/jobs/:jobId
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	snap, err := h.registry.Get(jobID)
	if err != nil {
		if errors.Is(err, runner.ErrRunNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to load run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, snap)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	runs := h.registry.List()
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := runs[:0]
		for _, run := range runs {
			if string(run.Status) == status {
				filtered = append(filtered, run)
			}
		}
		runs = filtered
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  runs,
		"count": len(runs),
	})
}

// CancelJob handles POST /api/jobs/:jobId/cancel
func (h *JobsHandler) CancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	err := h.registry.Cancel(jobID, "cancelled by operator")
	switch {
	case err == nil:
		snap, _ := h.registry.Get(jobID)
		middleware.WriteJSON(w, http.StatusOK, snap)
	case errors.Is(err, runner.ErrRunNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, batch.ErrTerminalStatus):
		middleware.WriteError(w, http.StatusConflict, "Job already finished")
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to cancel run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to cancel job")
	}
}

// Route dispatches /api/jobs and /api/jobs/... to the handler methods.
func (h *JobsHandler) Route(mux *http.ServeMux) {
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListJobs(w, r)
		case http.MethodPost:
			h.SubmitJob(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if rest == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}

		if jobID, ok := strings.CutSuffix(rest, "/cancel"); ok {
			if r.Method != http.MethodPost {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			h.CancelJob(w, r, jobID)
			return
		}

		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.GetJob(w, r, rest)
	})
}
