package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/pipeline"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// JobsHandler serves job status, results, listing, and cancellation.
type JobsHandler struct {
	logger *observability.Logger
	orch   *pipeline.Orchestrator
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(logger *observability.Logger, orch *pipeline.Orchestrator) *JobsHandler {
	return &JobsHandler{logger: logger, orch: orch}
}

// Status handles GET /api/v1/jobs/{jobID}/status.
func (h *JobsHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	snap, err := h.orch.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, results.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID.String()).Msg("Status lookup failed")
		writeError(w, http.StatusInternalServerError, "status lookup failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Result handles GET /api/v1/jobs/{jobID}/result.
func (h *JobsHandler) Result(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	result, err := h.orch.Result(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, results.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID.String()).Msg("Result lookup failed")
		writeError(w, http.StatusInternalServerError, "result lookup failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List handles GET /api/v1/jobs with status, tenant_id, limit, and
// offset query parameters.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := results.ListFilter{
		Status:   results.JobStatus(q.Get("status")),
		TenantID: q.Get("tenant_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", "")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset", "")
			return
		}
		filter.Offset = n
	}

	jobs, err := h.orch.ListJobs(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Job listing failed")
		writeError(w, http.StatusInternalServerError, "listing failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Cancel handles POST /api/v1/jobs/{jobID}/cancel.
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	err := h.orch.Cancel(r.Context(), jobID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancellation_requested"})
	case errors.Is(err, results.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "")
	case errors.Is(err, pipeline.ErrJobTerminal):
		writeError(w, http.StatusConflict, "job already finished", "")
	case errors.Is(err, pipeline.ErrJobNotRunning):
		writeError(w, http.StatusConflict, "job is not running", "")
	default:
		h.logger.Error().Err(err).Str("job_id", jobID.String()).Msg("Cancellation failed")
		writeError(w, http.StatusInternalServerError, "cancellation failed", err.Error())
	}
}

func (h *JobsHandler) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job ID", err.Error())
		return uuid.Nil, false
	}
	return id, true
}
