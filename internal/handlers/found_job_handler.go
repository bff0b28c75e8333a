package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/interfaces"
)

// FoundJobHandler serves the user's discovered-postings catalog
type FoundJobHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewFoundJobHandler creates a new found-job handler
func NewFoundJobHandler(storage interfaces.StorageManager, logger arbor.ILogger) *FoundJobHandler {
	return &FoundJobHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListFoundJobsHandler handles GET /tasks/found-jobs with optional task_id
// and saved_only filters
func (h *FoundJobHandler) ListFoundJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts := interfaces.FoundJobListOptions{
		TaskID:    r.URL.Query().Get("task_id"),
		SavedOnly: r.URL.Query().Get("saved_only") == "true",
	}

	jobs, err := h.storage.FoundJobStorage().ListFoundJobs(r.Context(), UserID(r), opts)
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, jobs)
}

// foundJobPatchRequest is the PUT /tasks/found-jobs/{job_id} body. Scores and
// analysis are written by the matcher only, not through this endpoint.
type foundJobPatchRequest struct {
	Saved             *bool   `json:"saved"`
	ApplicationStatus *string `json:"application_status"`
}

// FoundJobByIDHandler handles GET/PUT /tasks/found-jobs/{job_id}
func (h *FoundJobHandler) FoundJobByIDHandler(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/tasks/found-jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteDetail(w, http.StatusNotFound, "job id required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, err := h.storage.FoundJobStorage().GetFoundJob(r.Context(), UserID(r), jobID)
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, job)

	case http.MethodPut:
		var req foundJobPatchRequest
		if !DecodeBody(w, r, &req) {
			return
		}

		patch := interfaces.FoundJobPatch{
			Saved:             req.Saved,
			ApplicationStatus: req.ApplicationStatus,
		}

		job, err := h.storage.FoundJobStorage().UpdateFoundJob(r.Context(), UserID(r), jobID, patch)
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, job)

	default:
		WriteDetail(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
