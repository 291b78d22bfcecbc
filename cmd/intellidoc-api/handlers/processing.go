package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/pipeline"
)

// ProcessingHandler handles job submission.
type ProcessingHandler struct {
	logger *observability.Logger
	orch   *pipeline.Orchestrator
}

// NewProcessingHandler creates a processing handler.
func NewProcessingHandler(logger *observability.Logger, orch *pipeline.Orchestrator) *ProcessingHandler {
	return &ProcessingHandler{logger: logger, orch: orch}
}

// Submit handles POST /api/v1/jobs: asynchronous submission. The
// response carries the job ID for status polling.
func (h *ProcessingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	job, err := h.orch.Submit(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("Job submission failed")
		writeError(w, http.StatusInternalServerError, "submission failed", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

// Process handles POST /api/v1/process: synchronous processing. The
// response carries the complete aggregate result.
func (h *ProcessingHandler) Process(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.orch.Process(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("Synchronous processing failed")
		writeError(w, http.StatusInternalServerError, "processing failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ProcessingHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return req, false
	}
	if req.SourceType == "" {
		writeError(w, http.StatusBadRequest, "source_type is required", "")
		return req, false
	}
	if req.SourceReference == "" {
		writeError(w, http.StatusBadRequest, "source_reference is required", "")
		return req, false
	}
	return req, true
}
