package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/scout/internal/models"
)

// TaskListOptions filters and pages task listings. Results are returned
// most recent first.
type TaskListOptions struct {
	Status  models.TaskStatus
	Page    int
	PerPage int
}

// TaskPatch describes a partial task update. Nil fields are left untouched.
// Status changes are validated against the state machine and written
// conditionally on the current status.
type TaskPatch struct {
	Status          *models.TaskStatus
	ExecutionResult *string
	OtherMessage    *string
	StartedAt       *time.Time
	CompletedAt     *time.Time

	// Recurrence scaffolding. Persisted and validated at the engine boundary
	// but never executed.
	IsRecurring      *bool
	RecurrenceConfig *string
}

// FoundJobListOptions filters found job listings
type FoundJobListOptions struct {
	TaskID    string
	SavedOnly bool
}

// FoundJobPatch describes a partial found job update. Nil fields are left
// untouched. MatchScore and Analysis are set together by scoring.
type FoundJobPatch struct {
	Saved             *bool
	MatchScore        *int
	Analysis          *models.AIAnalysis
	ApplicationStatus *string
}

// TaskStorage - typed, user-scoped persistence for agent tasks.
// Every operation is keyed on the owning user; a task is never visible to or
// mutable by another user.
type TaskStorage interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, userID, taskID string) (*models.Task, error)
	ListTasks(ctx context.Context, userID string, opts TaskListOptions) ([]*models.Task, error)

	// UpdateTask applies a patch. A status change that violates the state
	// machine returns ErrInvalidTransition; a conditional write that loses
	// a race returns ErrConcurrentTransition.
	UpdateTask(ctx context.Context, userID, taskID string, patch TaskPatch) (*models.Task, error)

	DeleteTask(ctx context.Context, userID, taskID string) error
}

// FoundJobStorage - typed, user-scoped persistence for discovered postings
type FoundJobStorage interface {
	// InsertFoundJobs inserts postings, skipping any that duplicate an
	// existing (user, task, job_url) row. Returns the number inserted.
	InsertFoundJobs(ctx context.Context, userID, taskID string, jobs []*models.FoundJob) (int, error)

	GetFoundJob(ctx context.Context, userID, jobID string) (*models.FoundJob, error)
	ListFoundJobs(ctx context.Context, userID string, opts FoundJobListOptions) ([]*models.FoundJob, error)

	// ListUnscoredJobs returns the task's postings with no match score yet
	ListUnscoredJobs(ctx context.Context, userID, taskID string) ([]*models.FoundJob, error)

	UpdateFoundJob(ctx context.Context, userID, jobID string, patch FoundJobPatch) (*models.FoundJob, error)

	// DetachTask nulls agent_task_id on the task's postings, preserving them
	// in the user's catalog when the parent task is deleted
	DetachTask(ctx context.Context, userID, taskID string) error
}

// ResumeStorage - read-mostly persistence for scoring input resumes
type ResumeStorage interface {
	SaveResume(ctx context.Context, resume *models.Resume) error
	GetResume(ctx context.Context, userID, resumeID string) (*models.Resume, error)
	ListResumes(ctx context.Context, userID string) ([]*models.Resume, error)
	CountResumes(ctx context.Context) (int, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	TaskStorage() TaskStorage
	FoundJobStorage() FoundJobStorage
	ResumeStorage() ResumeStorage
	Close() error
}
