package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/interfaces"
)

// ResumeHandler exposes the seeded resume catalog
type ResumeHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewResumeHandler creates a new resume handler
func NewResumeHandler(storage interfaces.StorageManager, logger arbor.ILogger) *ResumeHandler {
	return &ResumeHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListResumesHandler handles GET /tasks/resumes
func (h *ResumeHandler) ListResumesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	resumes, err := h.storage.ResumeStorage().ListResumes(r.Context(), UserID(r))
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resumes)
}
