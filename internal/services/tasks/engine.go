package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

// Engine creates tasks, dispatches background workers and drives each task
// through the state machine. It is constructed once at startup and holds the
// storage handle and pipeline runners explicitly; workers take their own
// copies of parameters at dispatch and never touch request-scoped state.
type Engine struct {
	storage interfaces.StorageManager
	scraper interfaces.ScraperRunner
	matcher interfaces.MatcherRunner
	config  *common.EngineConfig
	logger  arbor.ILogger
	queue   *runQueue

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewEngine creates a task engine
func NewEngine(storage interfaces.StorageManager, scraper interfaces.ScraperRunner, matcher interfaces.MatcherRunner, config *common.EngineConfig, logger arbor.ILogger) *Engine {
	return &Engine{
		storage: storage,
		scraper: scraper,
		matcher: matcher,
		config:  config,
		logger:  logger,
		queue:   newRunQueue(config.MaxActivePerUser, logger),
		cancels: make(map[string]context.CancelFunc),
	}
}

// worker performs one pipeline run. It returns the typed execution result
// (carrying partial aggregates even on failure) and an error.
type worker func(ctx context.Context, task *models.Task) (any, error)

// CreateAndRun creates the task row synchronously, validates its
// instructions and dispatches the background worker through the per-user run
// queue. The returned channel closes when the task is finalized, so callers
// wanting the original synchronous contract can wait on it while pollers
// observe the row throughout.
func (e *Engine) CreateAndRun(ctx context.Context, userID string, taskType models.TaskType, description string, instructions any) (*models.Task, <-chan struct{}, error) {
	if err := ValidateInstructions(instructions); err != nil {
		return nil, nil, err
	}

	task := &models.Task{
		ID:              common.NewTaskID(),
		UserID:          userID,
		TaskType:        taskType,
		TaskDescription: description,
		Status:          models.TaskStatusPending,
		IsActive:        true,
	}
	if err := task.SetInstructions(instructions); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}

	if err := e.storage.TaskStorage().CreateTask(ctx, task); err != nil {
		return nil, nil, err
	}

	e.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", userID).
		Str("task_type", string(taskType)).
		Msg("Task created")

	done := make(chan struct{})
	e.queue.Submit(userID, func() {
		defer close(done)
		e.execute(task.UserID, task.ID)
	})

	return task, done, nil
}

// GetTask returns a task for its owner
func (e *Engine) GetTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	return e.storage.TaskStorage().GetTask(ctx, userID, taskID)
}

// ListTasks lists the user's tasks, most recent first
func (e *Engine) ListTasks(ctx context.Context, userID string, opts interfaces.TaskListOptions) ([]*models.Task, error) {
	return e.storage.TaskStorage().ListTasks(ctx, userID, opts)
}

// UpdateTask applies a caller-supplied patch respecting the state machine.
// A recurrence schedule is validated before it reaches the store; schedules
// persist but are never executed.
func (e *Engine) UpdateTask(ctx context.Context, userID, taskID string, patch interfaces.TaskPatch) (*models.Task, error) {
	if patch.RecurrenceConfig != nil {
		if err := common.ValidateRecurrenceConfig(*patch.RecurrenceConfig); err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
		}
	}
	return e.storage.TaskStorage().UpdateTask(ctx, userID, taskID, patch)
}

// CancelTask trips the worker's cancellation token and performs a
// best-effort transition to cancelled. Cancelling an already-terminal task
// is a no-op that reports success.
func (e *Engine) CancelTask(ctx context.Context, userID, taskID string) error {
	task, err := e.storage.TaskStorage().GetTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if task.Status.IsTerminal() {
		return nil
	}

	e.mu.Lock()
	cancel := e.cancels[taskID]
	e.mu.Unlock()

	if cancel != nil {
		// A live worker finalizes as cancelled at its next poll
		cancel()
		return nil
	}

	// No worker yet (queued) or the worker is gone; transition directly
	status := models.TaskStatusCancelled
	message := "cancelled by user"
	_, err = e.storage.TaskStorage().UpdateTask(ctx, userID, taskID, interfaces.TaskPatch{
		Status:       &status,
		OtherMessage: &message,
	})
	if errors.Is(err, interfaces.ErrConcurrentTransition) {
		return nil
	}
	return err
}

// execute wraps a worker run: running transition, budget, panic recovery and
// the terminal write
func (e *Engine) execute(userID, taskID string) {
	ctx := context.Background()

	task, err := e.storage.TaskStorage().GetTask(ctx, userID, taskID)
	if err != nil {
		e.logger.Error().Str("task_id", taskID).Err(err).Msg("Dispatch failed to load task")
		return
	}
	// Cancelled while queued
	if task.Status != models.TaskStatusPending {
		return
	}

	running := models.TaskStatusRunning
	if _, err := e.storage.TaskStorage().UpdateTask(ctx, userID, taskID, interfaces.TaskPatch{Status: &running}); err != nil {
		if !errors.Is(err, interfaces.ErrConcurrentTransition) {
			e.logger.Error().Str("task_id", taskID).Err(err).Msg("Failed to mark task running")
		}
		return
	}

	workCtx, cancel := context.WithTimeout(ctx, e.budgetFor(task.TaskType))
	defer cancel()

	e.mu.Lock()
	e.cancels[taskID] = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.cancels, taskID)
		e.mu.Unlock()
	}()

	result, workErr := e.runWorker(workCtx, task)
	e.finalize(ctx, workCtx, task, result, workErr)
}

// runWorker dispatches by task type and converts panics into errors; the
// engine never propagates panics
func (e *Engine) runWorker(ctx context.Context, task *models.Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("task_id", task.ID).
				Str("panic", fmt.Sprint(r)).
				Msg("Worker panicked")
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	switch task.TaskType {
	case models.TaskTypeSeekScraper:
		in, decodeErr := DecodeScraperInstructions(task)
		if decodeErr != nil {
			return nil, decodeErr
		}
		return e.scraper.Scrape(ctx, task.UserID, task.ID, in)

	case models.TaskTypeResumeMatching:
		in, decodeErr := DecodeMatcherInstructions(task)
		if decodeErr != nil {
			return nil, decodeErr
		}
		return e.matcher.Match(ctx, task.UserID, task.ID, in)

	case models.TaskTypeJobAgent:
		in, decodeErr := DecodeJobAgentInstructions(task)
		if decodeErr != nil {
			return nil, decodeErr
		}
		return e.runJobAgent(ctx, task, in)
	}

	return nil, fmt.Errorf("unknown task type: %s", task.TaskType)
}

// finalize writes the terminal status, execution result and diagnostic
// message in one conditional update. Losing the write race means the task is
// already terminal, which is not an error here.
func (e *Engine) finalize(ctx, workCtx context.Context, task *models.Task, result any, workErr error) {
	patch := interfaces.TaskPatch{}

	if result != nil {
		if data, err := marshalResult(result); err == nil {
			patch.ExecutionResult = &data
		} else {
			e.logger.Warn().Str("task_id", task.ID).Err(err).Msg("Failed to serialize execution result")
		}
	}

	var status models.TaskStatus
	var message string
	switch {
	case workErr == nil:
		status = models.TaskStatusCompleted
	case errors.Is(workErr, context.Canceled) || errors.Is(workErr, interfaces.ErrCancelled):
		status = models.TaskStatusCancelled
		message = "cancelled by user"
	case errors.Is(workErr, context.DeadlineExceeded) || workCtx.Err() == context.DeadlineExceeded:
		status = models.TaskStatusFailed
		message = "deadline exceeded"
	default:
		status = models.TaskStatusFailed
		message = workErr.Error()
	}

	patch.Status = &status
	if message != "" {
		patch.OtherMessage = &message
	}

	_, err := e.storage.TaskStorage().UpdateTask(ctx, task.UserID, task.ID, patch)
	if err != nil && !errors.Is(err, interfaces.ErrConcurrentTransition) {
		e.logger.Error().
			Str("task_id", task.ID).
			Str("status", string(status)).
			Err(err).
			Msg("Failed to finalize task")
		return
	}

	e.logger.Info().
		Str("task_id", task.ID).
		Str("status", string(status)).
		Msg("Task finalized")
}

func (e *Engine) budgetFor(taskType models.TaskType) time.Duration {
	switch taskType {
	case models.TaskTypeJobAgent:
		if e.config.JobAgentBudget > 0 {
			return e.config.JobAgentBudget
		}
		return 30 * time.Minute
	case models.TaskTypeSeekScraper:
		if e.config.ScraperBudget > 0 {
			return e.config.ScraperBudget
		}
		return 15 * time.Minute
	case models.TaskTypeResumeMatching:
		if e.config.MatchingBudget > 0 {
			return e.config.MatchingBudget
		}
		return 20 * time.Minute
	}
	return 15 * time.Minute
}
