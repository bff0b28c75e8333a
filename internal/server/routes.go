package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/scout/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Pipeline endpoints. Fixed paths must be registered before the /tasks/
	// subtree dispatcher picks up {task_id} routes.
	mux.HandleFunc("/tasks/seek-scraper", s.app.TaskHandler.SeekScraperHandler)
	mux.HandleFunc("/tasks/resume-job-matching", s.app.TaskHandler.ResumeMatchingHandler)
	mux.HandleFunc("/tasks/job-agent", s.app.TaskHandler.JobAgentHandler)

	// Catalog endpoints
	mux.HandleFunc("/tasks/found-jobs", s.app.FoundJobHandler.ListFoundJobsHandler)
	mux.HandleFunc("/tasks/found-jobs/", s.app.FoundJobHandler.FoundJobByIDHandler)
	mux.HandleFunc("/tasks/resumes", s.app.ResumeHandler.ListResumesHandler)

	// Task listing and per-task routes
	mux.HandleFunc("/tasks", s.app.TaskHandler.ListTasksHandler)
	mux.HandleFunc("/tasks/", s.handleTaskRoutes)

	// System
	mux.HandleFunc("/health", handlers.HealthHandler)
	mux.HandleFunc("/version", handlers.VersionHandler)

	return mux
}

// handleTaskRoutes dispatches /tasks/{task_id} and its subpaths. The fixed
// /tasks/* routes above shadow this dispatcher for their exact paths, but
// ServeMux still sends unregistered subtree paths here.
func (s *Server) handleTaskRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tasks/")
	if path == "" || strings.HasPrefix(path, "found-jobs") || strings.HasPrefix(path, "resumes") {
		http.NotFound(w, r)
		return
	}
	s.app.TaskHandler.TaskByIDHandler(w, r)
}
