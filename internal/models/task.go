package models

import (
	"encoding/json"
	"time"
)

// TaskStatus represents the lifecycle state of an agent task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusScheduled TaskStatus = "scheduled"
	TaskStatusRecurring TaskStatus = "recurring"
)

// TaskType classifies which pipeline a task drives
type TaskType string

const (
	TaskTypeSeekScraper   TaskType = "seek_scraper"       // Browser-driven job board scraping
	TaskTypeResumeMatching TaskType = "resume_job_matching" // Batched resume-to-job scoring
	TaskTypeJobAgent      TaskType = "job_agent"          // Composite scrape + match pipeline
)

// Pipeline stage labels reported in job agent execution results
const (
	StageScraping  = "scraping"
	StageMatching  = "matching"
	StageCompleted = "completed"
)

// Task represents one durable pipeline run.
//
// Instructions and results are stored as JSON snapshots so a task row is
// self-contained and auditable after the fact. The typed variants
// (ScraperInstructions, MatcherInstructions, JobAgentInstructions and their
// result counterparts) are serialized at the engine boundary only; storage
// treats both columns as opaque strings.
//
// Recurrence fields are persisted and validated but no scheduler executes
// them. They exist so recurring task definitions survive upgrades.
type Task struct {
	ID              string     `json:"id" badgerhold:"key"`
	UserID          string     `json:"user_id" badgerhold:"index"`
	TaskType        TaskType   `json:"task_type"`
	TaskDescription string     `json:"task_description"`
	Status          TaskStatus `json:"status" badgerhold:"index"`

	// TaskInstructions is a JSON snapshot of the typed instruction variant
	// for this task's type, captured at creation time.
	TaskInstructions string `json:"task_instructions"`

	// ExecutionResult is a JSON summary written at terminal transition, or at
	// stage boundaries for job_agent tasks.
	ExecutionResult string `json:"execution_result,omitempty"`

	// OtherMessage carries a short, user-intelligible diagnostic. Populated
	// on failure and cancellation.
	OtherMessage string `json:"other_message,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	// Recurrence scaffolding. Stored but never executed by the engine.
	IsRecurring      bool      `json:"is_recurring,omitempty"`
	RecurrenceConfig string    `json:"recurrence_config,omitempty"`
	NextExecutionAt  time.Time `json:"next_execution_at,omitempty"`
	LastExecutionAt  time.Time `json:"last_execution_at,omitempty"`
	ExecutionCount   int       `json:"execution_count,omitempty"`
	MaxExecutions    int       `json:"max_executions,omitempty"`
	IsActive         bool      `json:"is_active"`
}

// IsTerminal reports whether a status admits no further transitions
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// validTransitions encodes the task state machine:
//
//	pending -> running | cancelled | failed
//	running -> completed | failed | cancelled | paused
//	paused  -> running | cancelled
//
// Terminal states admit nothing. pending -> cancelled covers a queued task
// cancelled before dispatch; pending -> failed covers dispatch-time
// validation failures.
var validTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:   {TaskStatusRunning, TaskStatusCancelled, TaskStatusFailed},
	TaskStatusRunning:   {TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled, TaskStatusPaused},
	TaskStatusPaused:    {TaskStatusRunning, TaskStatusCancelled},
	TaskStatusScheduled: {TaskStatusPending, TaskStatusCancelled},
	TaskStatusRecurring: {TaskStatusPending, TaskStatusCancelled},
}

// CanTransition reports whether the state machine permits from -> to.
// Self-transitions are rejected along with everything out of a terminal state.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ScraperInstructions is the typed instruction variant for seek_scraper tasks
type ScraperInstructions struct {
	JobTitles       []string `json:"job_titles" validate:"required,min=1,dive,required"`
	Location        string   `json:"location" validate:"required"`
	JobRequired     int      `json:"job_required" validate:"min=0,max=50"`
	TaskDescription string   `json:"task_description,omitempty"`
}

// MatcherInstructions is the typed instruction variant for resume_job_matching tasks
type MatcherInstructions struct {
	ResumeID        string `json:"resume_id" validate:"required"`
	TaskID          string `json:"task_id" validate:"required"`
	AIModel         string `json:"ai_model" validate:"required,oneof=openai deepseek google azure_openai ollama claude"`
	TaskDescription string `json:"task_description,omitempty"`
}

// JobAgentInstructions is the union instruction variant for job_agent tasks
type JobAgentInstructions struct {
	JobTitles       []string `json:"job_titles" validate:"required,min=1,dive,required"`
	Location        string   `json:"location" validate:"required"`
	JobRequired     int      `json:"job_required" validate:"min=0,max=50"`
	ResumeID        string   `json:"resume_id" validate:"required"`
	AIModel         string   `json:"ai_model" validate:"required,oneof=openai deepseek google azure_openai ollama claude"`
	TaskDescription string   `json:"task_description,omitempty"`
}

// ScraperResult is the execution_result shape for seek_scraper tasks
type ScraperResult struct {
	JobsFound         int      `json:"jobs_found"`
	JobsRequired      int      `json:"jobs_required"`
	JobTitlesSearched []string `json:"job_titles_searched"`
	Location          string   `json:"location"`
	CompletionRate    float64  `json:"completion_rate"`
}

// MatcherResult is the execution_result shape for resume_job_matching tasks
type MatcherResult struct {
	TotalAnalyzed      int    `json:"total_analyzed"`
	SuccessfulAnalyses int    `json:"successful_analyses"`
	FailedAnalyses     int    `json:"failed_analyses"`
	AverageScore       int    `json:"average_score"`
	ResumeID           string `json:"resume_id"`
	AIModel            string `json:"ai_model"`
}

// JobAgentResult is the execution_result shape for job_agent tasks.
// Stage records how far the pipeline got; partial counts survive failures.
type JobAgentResult struct {
	JobsFound          int    `json:"jobs_found"`
	SuccessfulAnalyses int    `json:"successful_analyses"`
	FailedAnalyses     int    `json:"failed_analyses"`
	AverageScore       int    `json:"average_score"`
	Stage              string `json:"stage"`
}

// SetInstructions marshals and stores the typed instruction variant as JSON
func (t *Task) SetInstructions(v any) error {
	if v == nil {
		t.TaskInstructions = ""
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.TaskInstructions = string(data)
	return nil
}

// GetInstructions unmarshals the instruction snapshot into the given variant
func (t *Task) GetInstructions(v any) error {
	return json.Unmarshal([]byte(t.TaskInstructions), v)
}

// SetResult marshals and stores the typed result variant as JSON
func (t *Task) SetResult(v any) error {
	if v == nil {
		t.ExecutionResult = ""
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.ExecutionResult = string(data)
	return nil
}

// GetResult unmarshals the result snapshot into the given variant
func (t *Task) GetResult(v any) error {
	if t.ExecutionResult == "" {
		return nil
	}
	return json.Unmarshal([]byte(t.ExecutionResult), v)
}
