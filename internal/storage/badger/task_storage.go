package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// TaskStorage implements the TaskStorage interface for Badger.
//
// Status writes are conditional on the current status: the transition is
// validated against the state machine under transitionMu, so two workers
// racing to finalize the same task produce exactly one terminal write. The
// loser gets ErrConcurrentTransition, which callers treat as non-fatal.
type TaskStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	transitionMu sync.Mutex
}

// NewTaskStorage creates a new TaskStorage instance
func NewTaskStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TaskStorage {
	return &TaskStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TaskStorage) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if task.UserID == "" {
		return fmt.Errorf("task user ID is required")
	}

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	if err := s.db.Store().Insert(task.ID, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *TaskStorage) GetTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	var task models.Task
	if err := s.db.Store().Get(taskID, &task); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	// Row-level isolation: another user's task is indistinguishable from a
	// missing one
	if task.UserID != userID {
		return nil, interfaces.ErrNotFound
	}
	return &task, nil
}

func (s *TaskStorage) ListTasks(ctx context.Context, userID string, opts interfaces.TaskListOptions) ([]*models.Task, error) {
	query := badgerhold.Where("UserID").Eq(userID).Index("UserID")

	if opts.Status != "" {
		query = query.And("Status").Eq(opts.Status)
	}

	query = query.SortBy("CreatedAt").Reverse()

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	query = query.Skip((page - 1) * perPage).Limit(perPage)

	var tasks []models.Task
	if err := s.db.Store().Find(&tasks, query); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	result := make([]*models.Task, len(tasks))
	for i := range tasks {
		result[i] = &tasks[i]
	}
	return result, nil
}

func (s *TaskStorage) UpdateTask(ctx context.Context, userID, taskID string, patch interfaces.TaskPatch) (*models.Task, error) {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	task, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status != task.Status {
		if !models.CanTransition(task.Status, *patch.Status) {
			if task.Status.IsTerminal() {
				return nil, interfaces.ErrConcurrentTransition
			}
			return nil, fmt.Errorf("%w: %s -> %s", interfaces.ErrInvalidTransition, task.Status, *patch.Status)
		}

		task.Status = *patch.Status

		// started_at is set on first entry into running and never cleared
		if *patch.Status == models.TaskStatusRunning && task.StartedAt.IsZero() {
			task.StartedAt = time.Now()
		}
		// completed_at is set exactly at terminal transition
		if patch.Status.IsTerminal() && task.CompletedAt.IsZero() {
			task.CompletedAt = time.Now()
		}
	}

	if patch.ExecutionResult != nil {
		task.ExecutionResult = *patch.ExecutionResult
	}
	if patch.OtherMessage != nil {
		task.OtherMessage = *patch.OtherMessage
	}
	if patch.StartedAt != nil && task.StartedAt.IsZero() {
		task.StartedAt = *patch.StartedAt
	}
	if patch.CompletedAt != nil && task.CompletedAt.IsZero() {
		task.CompletedAt = *patch.CompletedAt
	}
	if patch.IsRecurring != nil {
		task.IsRecurring = *patch.IsRecurring
	}
	if patch.RecurrenceConfig != nil {
		task.RecurrenceConfig = *patch.RecurrenceConfig
	}

	task.UpdatedAt = time.Now()

	if err := s.db.Store().Update(task.ID, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (s *TaskStorage) DeleteTask(ctx context.Context, userID, taskID string) error {
	task, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if err := s.db.Store().Delete(task.ID, &models.Task{}); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
