package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
	"github.com/ternarybob/scout/internal/services/tasks"
)

// TaskHandler serves the task surface: the three pipeline endpoints plus
// task listing, inspection, patching and deletion.
//
// The pipeline POST endpoints keep the synchronous contract: the handler
// waits on the worker's completion channel and returns real counts. The task
// row is observable via GET /tasks polling for the whole run.
type TaskHandler struct {
	engine  *tasks.Engine
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(engine *tasks.Engine, storage interfaces.StorageManager, logger arbor.ILogger) *TaskHandler {
	return &TaskHandler{
		engine:  engine,
		storage: storage,
		logger:  logger,
	}
}

// SeekScraperRequest is the POST /tasks/seek-scraper body
type SeekScraperRequest struct {
	JobTitles       []string `json:"job_titles"`
	Location        string   `json:"location"`
	JobRequired     int      `json:"job_required"`
	TaskDescription string   `json:"task_description,omitempty"`
}

// ResumeMatchingRequest is the POST /tasks/resume-job-matching body
type ResumeMatchingRequest struct {
	ResumeID        string `json:"resume_id"`
	TaskID          string `json:"task_id"`
	AIModel         string `json:"ai_model"`
	TaskDescription string `json:"task_description,omitempty"`
}

// JobAgentRequest is the POST /tasks/job-agent body
type JobAgentRequest struct {
	JobTitles       []string `json:"job_titles"`
	Location        string   `json:"location"`
	JobRequired     int      `json:"job_required"`
	ResumeID        string   `json:"resume_id"`
	AIModel         string   `json:"ai_model"`
	TaskDescription string   `json:"task_description,omitempty"`
}

// SeekScraperHandler handles POST /tasks/seek-scraper
func (h *TaskHandler) SeekScraperHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req SeekScraperRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	description := req.TaskDescription
	if description == "" {
		description = fmt.Sprintf("Scrape %d jobs for %s", req.JobRequired, strings.Join(req.JobTitles, ", "))
	}

	task, done, err := h.engine.CreateAndRun(r.Context(), UserID(r), models.TaskTypeSeekScraper, description, &models.ScraperInstructions{
		JobTitles:       req.JobTitles,
		Location:        req.Location,
		JobRequired:     req.JobRequired,
		TaskDescription: req.TaskDescription,
	})
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	<-done

	final, result := h.reloadScraperResult(r, task.ID)
	message := fmt.Sprintf("Found %d of %d requested jobs", result.JobsFound, req.JobRequired)
	if final.Status != models.TaskStatusCompleted && final.OtherMessage != "" {
		message = final.OtherMessage
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"task_id":    task.ID,
		"message":    message,
		"jobs_found": result.JobsFound,
		"status":     final.Status,
	})
}

// ResumeMatchingHandler handles POST /tasks/resume-job-matching
func (h *TaskHandler) ResumeMatchingHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ResumeMatchingRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	description := req.TaskDescription
	if description == "" {
		description = fmt.Sprintf("Match resume %s against task %s", req.ResumeID, req.TaskID)
	}

	task, done, err := h.engine.CreateAndRun(r.Context(), UserID(r), models.TaskTypeResumeMatching, description, &models.MatcherInstructions{
		ResumeID:        req.ResumeID,
		TaskID:          req.TaskID,
		AIModel:         req.AIModel,
		TaskDescription: req.TaskDescription,
	})
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	<-done

	final, _ := h.engine.GetTask(r.Context(), UserID(r), task.ID)
	var result models.MatcherResult
	if final != nil {
		final.GetResult(&result)
	}

	message := fmt.Sprintf("Analyzed %d jobs (%d successful, %d failed)", result.TotalAnalyzed, result.SuccessfulAnalyses, result.FailedAnalyses)
	if final != nil && final.Status != models.TaskStatusCompleted && final.OtherMessage != "" {
		message = final.OtherMessage
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"task_id":       task.ID,
		"message":       message,
		"jobs_analyzed": result.TotalAnalyzed,
		"resume_id":     req.ResumeID,
		"ai_model":      req.AIModel,
	})
}

// JobAgentHandler handles POST /tasks/job-agent
func (h *TaskHandler) JobAgentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req JobAgentRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	description := req.TaskDescription
	if description == "" {
		description = fmt.Sprintf("Job agent: %s in %s", strings.Join(req.JobTitles, ", "), req.Location)
	}

	task, done, err := h.engine.CreateAndRun(r.Context(), UserID(r), models.TaskTypeJobAgent, description, &models.JobAgentInstructions{
		JobTitles:       req.JobTitles,
		Location:        req.Location,
		JobRequired:     req.JobRequired,
		ResumeID:        req.ResumeID,
		AIModel:         req.AIModel,
		TaskDescription: req.TaskDescription,
	})
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	<-done

	final, _ := h.engine.GetTask(r.Context(), UserID(r), task.ID)
	var result models.JobAgentResult
	if final != nil {
		final.GetResult(&result)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"task_id":             task.ID,
		"jobs_found":          result.JobsFound,
		"successful_analyses": result.SuccessfulAnalyses,
		"failed_analyses":     result.FailedAnalyses,
		"average_score":       result.AverageScore,
	})
}

// ListTasksHandler handles GET /tasks
func (h *TaskHandler) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	page, perPage := GetPaginationParams(r)
	opts := interfaces.TaskListOptions{
		Status:  models.TaskStatus(r.URL.Query().Get("status")),
		Page:    page,
		PerPage: perPage,
	}

	taskList, err := h.engine.ListTasks(r.Context(), UserID(r), opts)
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, taskList)
}

// TaskByIDHandler handles GET/PUT/DELETE /tasks/{task_id} and
// GET /tasks/{task_id}/analysis-summary
func (h *TaskHandler) TaskByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tasks/")
	if path == "" {
		WriteDetail(w, http.StatusNotFound, "task id required")
		return
	}

	if strings.HasSuffix(path, "/analysis-summary") {
		taskID := strings.TrimSuffix(path, "/analysis-summary")
		h.analysisSummary(w, r, taskID)
		return
	}

	taskID := path
	switch r.Method {
	case http.MethodGet:
		task, err := h.engine.GetTask(r.Context(), UserID(r), taskID)
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, task)

	case http.MethodPut:
		h.patchTask(w, r, taskID)

	case http.MethodDelete:
		// Postings survive task deletion in the user's catalog
		if err := h.storage.FoundJobStorage().DetachTask(r.Context(), UserID(r), taskID); err != nil {
			WriteStorageError(w, err)
			return
		}
		if err := h.storage.TaskStorage().DeleteTask(r.Context(), UserID(r), taskID); err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})

	default:
		WriteDetail(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// taskPatchRequest is the PUT /tasks/{task_id} body
type taskPatchRequest struct {
	Status           *string `json:"status"`
	OtherMessage     *string `json:"other_message"`
	ExecutionResult  *string `json:"execution_result"`
	IsRecurring      *bool   `json:"is_recurring"`
	RecurrenceConfig *string `json:"recurrence_config"`
}

func (h *TaskHandler) patchTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req taskPatchRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	// Cancellation goes through the engine so a live worker's token is
	// tripped, not just the row updated
	if req.Status != nil && models.TaskStatus(*req.Status) == models.TaskStatusCancelled {
		if err := h.engine.CancelTask(r.Context(), UserID(r), taskID); err != nil {
			WriteStorageError(w, err)
			return
		}
		task, err := h.engine.GetTask(r.Context(), UserID(r), taskID)
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, task)
		return
	}

	patch := interfaces.TaskPatch{
		OtherMessage:     req.OtherMessage,
		ExecutionResult:  req.ExecutionResult,
		IsRecurring:      req.IsRecurring,
		RecurrenceConfig: req.RecurrenceConfig,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		patch.Status = &status
	}

	task, err := h.engine.UpdateTask(r.Context(), UserID(r), taskID, patch)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}

// analysisSummary reports the score distribution for a task's scored
// postings: excellent 90+, good 70-89, fair 50-69, poor below 50
func (h *TaskHandler) analysisSummary(w http.ResponseWriter, r *http.Request, taskID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if _, err := h.engine.GetTask(r.Context(), UserID(r), taskID); err != nil {
		WriteStorageError(w, err)
		return
	}

	jobs, err := h.storage.FoundJobStorage().ListFoundJobs(r.Context(), UserID(r), interfaces.FoundJobListOptions{TaskID: taskID})
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	var analyzed, scoreSum int
	buckets := map[string]int{"excellent": 0, "good": 0, "fair": 0, "poor": 0}
	for _, job := range jobs {
		if job.MatchScore == nil {
			continue
		}
		analyzed++
		score := *job.MatchScore
		scoreSum += score
		switch {
		case score >= 90:
			buckets["excellent"]++
		case score >= 70:
			buckets["good"]++
		case score >= 50:
			buckets["fair"]++
		default:
			buckets["poor"]++
		}
	}

	average := 0
	if analyzed > 0 {
		average = scoreSum / analyzed
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"task_id":            taskID,
		"total_jobs":         len(jobs),
		"analyzed_jobs":      analyzed,
		"average_score":      average,
		"score_distribution": buckets,
	})
}

func (h *TaskHandler) reloadScraperResult(r *http.Request, taskID string) (*models.Task, models.ScraperResult) {
	var result models.ScraperResult
	task, err := h.engine.GetTask(r.Context(), UserID(r), taskID)
	if err != nil {
		return &models.Task{}, result
	}
	task.GetResult(&result)
	return task, result
}
