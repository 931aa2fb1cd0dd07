package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-scribe/internal/export"
)

// triggerRequest is the optional body for POST /api/v1/export.
type triggerRequest struct {
	BranchFilter string `json:"branch_filter"`
}

// handleTriggerExport runs one export synchronously and returns the
// result. A run already in flight yields 409.
func (s *Server) handleTriggerExport(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid request body")
		return
	}

	result, err := s.exporter.Run(r.Context(), export.Options{BranchFilter: req.BranchFilter})
	if errors.Is(err, export.ErrRunInProgress) {
		writeError(w, http.StatusConflict, ErrCodeConflict, "an export run is already in progress")
		return
	}
	if err != nil {
		s.logger.Error("export run failed to start", "error", err)
		writeInternalError(w, "export run failed to start")
		return
	}

	status := http.StatusOK
	if result.Status == export.StatusFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

// handleLastRun returns the most recent run result, preferring the
// in-memory result and falling back to recorded history.
func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	if result := s.exporter.Last(); result != nil {
		writeJSON(w, http.StatusOK, result)
		return
	}

	if s.history != nil {
		result, err := s.history.Last(r.Context())
		if err != nil {
			s.logger.Error("failed to load last run", "error", err)
			writeInternalError(w, "failed to load run history")
			return
		}
		if result != nil {
			writeJSON(w, http.StatusOK, result)
			return
		}
	}

	writeNotFound(w, "no export has run yet")
}

// handleListRuns returns paginated run history.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "run history is not enabled")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	result, err := s.history.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeInternalError(w, "failed to load run history")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
