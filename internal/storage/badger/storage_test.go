package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func newTask(id, userID string) *models.Task {
	return &models.Task{
		ID:       id,
		UserID:   userID,
		TaskType: models.TaskTypeSeekScraper,
	}
}

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func TestTaskStorage_CreateDefaultsToPending(t *testing.T) {
	storage := newTestManager(t).TaskStorage()
	ctx := context.Background()

	require.NoError(t, storage.CreateTask(ctx, newTask("task_1", "u1")))

	task, err := storage.GetTask(ctx, "u1", "task_1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.False(t, task.CreatedAt.IsZero())
	assert.True(t, task.StartedAt.IsZero())
}

func TestTaskStorage_UserIsolation(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.TaskStorage().CreateTask(ctx, newTask("task_1", "u1")))

	// Another user's task is indistinguishable from a missing one
	_, err := manager.TaskStorage().GetTask(ctx, "u2", "task_1")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = manager.TaskStorage().UpdateTask(ctx, "u2", "task_1", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusCancelled)})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	err = manager.TaskStorage().DeleteTask(ctx, "u2", "task_1")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	tasks, err := manager.TaskStorage().ListTasks(ctx, "u2", interfaces.TaskListOptions{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskStorage_TransitionTimestamps(t *testing.T) {
	storage := newTestManager(t).TaskStorage()
	ctx := context.Background()
	require.NoError(t, storage.CreateTask(ctx, newTask("task_1", "u1")))

	running, err := storage.UpdateTask(ctx, "u1", "task_1", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusRunning)})
	require.NoError(t, err)
	assert.False(t, running.StartedAt.IsZero())
	assert.True(t, running.CompletedAt.IsZero())
	startedAt := running.StartedAt

	// Pause and resume; started_at is never reset
	_, err = storage.UpdateTask(ctx, "u1", "task_1", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusPaused)})
	require.NoError(t, err)
	resumed, err := storage.UpdateTask(ctx, "u1", "task_1", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusRunning)})
	require.NoError(t, err)
	assert.Equal(t, startedAt.Unix(), resumed.StartedAt.Unix())

	completed, err := storage.UpdateTask(ctx, "u1", "task_1", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusCompleted)})
	require.NoError(t, err)
	assert.False(t, completed.CompletedAt.IsZero())
}

func TestTaskStorage_IllegalTransitionRejected(t *testing.T) {
	storage := newTestManager(t).TaskStorage()
	ctx := context.Background()
	require.NoError(t, storage.CreateTask(ctx, newTask("task_1", "u1")))

	// pending -> completed skips running
	_, err := storage.UpdateTask(ctx, "u1", "task_1", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusCompleted)})
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrInvalidTransition)

	// The failed write leaves the row untouched
	task, err := storage.GetTask(ctx, "u1", "task_1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
}

func TestTaskStorage_TerminalTransitionIsConcurrencyConflict(t *testing.T) {
	storage := newTestManager(t).TaskStorage()
	ctx := context.Background()
	require.NoError(t, storage.CreateTask(ctx, newTask("task_1", "u1")))

	_, err := storage.UpdateTask(ctx, "u1", "task_1", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusRunning)})
	require.NoError(t, err)
	_, err = storage.UpdateTask(ctx, "u1", "task_1", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusCancelled)})
	require.NoError(t, err)

	// A second finalizer losing the race gets the conflict sentinel and the
	// first terminal status stands
	_, err = storage.UpdateTask(ctx, "u1", "task_1", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusCompleted)})
	assert.ErrorIs(t, err, interfaces.ErrConcurrentTransition)

	task, err := storage.GetTask(ctx, "u1", "task_1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, task.Status)
}

func TestTaskStorage_SameStatusPatchIsNoOp(t *testing.T) {
	storage := newTestManager(t).TaskStorage()
	ctx := context.Background()
	require.NoError(t, storage.CreateTask(ctx, newTask("task_1", "u1")))

	// Patching the current status is not a transition
	task, err := storage.UpdateTask(ctx, "u1", "task_1", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusPending)})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
}

func TestTaskStorage_ListFiltersAndPaginates(t *testing.T) {
	storage := newTestManager(t).TaskStorage()
	ctx := context.Background()

	for _, id := range []string{"task_1", "task_2", "task_3"} {
		require.NoError(t, storage.CreateTask(ctx, newTask(id, "u1")))
		time.Sleep(5 * time.Millisecond)
	}
	_, err := storage.UpdateTask(ctx, "u1", "task_2", interfaces.TaskPatch{Status: statusPtr(models.TaskStatusRunning)})
	require.NoError(t, err)

	running, err := storage.ListTasks(ctx, "u1", interfaces.TaskListOptions{Status: models.TaskStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "task_2", running[0].ID)

	// Most recent first
	all, err := storage.ListTasks(ctx, "u1", interfaces.TaskListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "task_3", all[0].ID)

	paged, err := storage.ListTasks(ctx, "u1", interfaces.TaskListOptions{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "task_1", paged[0].ID)
}

func TestFoundJobStorage_InsertDeduplicatesByTaskAndURL(t *testing.T) {
	storage := newTestManager(t).FoundJobStorage()
	ctx := context.Background()

	jobs := []*models.FoundJob{
		{Title: "A", JobURL: "https://jobs.example/job/1"},
		{Title: "B", JobURL: "https://jobs.example/job/2"},
	}
	inserted, err := storage.InsertFoundJobs(ctx, "u1", "task_1", jobs)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Re-discovering the same URL under the same task is skipped
	inserted, err = storage.InsertFoundJobs(ctx, "u1", "task_1", []*models.FoundJob{
		{Title: "A again", JobURL: "https://jobs.example/job/1"},
		{Title: "C", JobURL: "https://jobs.example/job/3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// The same URL under a different task is a separate row
	inserted, err = storage.InsertFoundJobs(ctx, "u1", "task_2", []*models.FoundJob{
		{Title: "A elsewhere", JobURL: "https://jobs.example/job/1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	taskJobs, err := storage.ListFoundJobs(ctx, "u1", interfaces.FoundJobListOptions{TaskID: "task_1"})
	require.NoError(t, err)
	assert.Len(t, taskJobs, 3)
}

func TestFoundJobStorage_InsertAppliesDefaults(t *testing.T) {
	storage := newTestManager(t).FoundJobStorage()
	ctx := context.Background()

	_, err := storage.InsertFoundJobs(ctx, "u1", "task_1", []*models.FoundJob{
		{Title: "A", JobURL: "https://jobs.example/job/1"},
	})
	require.NoError(t, err)

	jobs, err := storage.ListFoundJobs(ctx, "u1", interfaces.FoundJobListOptions{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.NotEmpty(t, jobs[0].ID)
	assert.Equal(t, "u1", jobs[0].UserID)
	assert.Equal(t, "task_1", jobs[0].AgentTaskID)
	assert.Equal(t, models.ApplicationStatusAgentFound, jobs[0].ApplicationStatus)
	assert.Nil(t, jobs[0].MatchScore)
}

func TestFoundJobStorage_ScoreAndAnalysisWrittenTogether(t *testing.T) {
	storage := newTestManager(t).FoundJobStorage()
	ctx := context.Background()

	_, err := storage.InsertFoundJobs(ctx, "u1", "task_1", []*models.FoundJob{
		{Title: "A", JobURL: "https://jobs.example/job/1"},
	})
	require.NoError(t, err)
	jobs, err := storage.ListUnscoredJobs(ctx, "u1", "task_1")
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	score := 140 // out-of-range input is clamped on write
	updated, err := storage.UpdateFoundJob(ctx, "u1", jobs[0].ID, interfaces.FoundJobPatch{
		MatchScore: &score,
		Analysis:   &models.AIAnalysis{Summary: "great"},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.MatchScore)
	assert.Equal(t, 100, *updated.MatchScore)
	require.NotNil(t, updated.AIAnalysis)

	unscored, err := storage.ListUnscoredJobs(ctx, "u1", "task_1")
	require.NoError(t, err)
	assert.Empty(t, unscored)
}

func TestFoundJobStorage_SavedFilterAndPatch(t *testing.T) {
	storage := newTestManager(t).FoundJobStorage()
	ctx := context.Background()

	_, err := storage.InsertFoundJobs(ctx, "u1", "task_1", []*models.FoundJob{
		{Title: "A", JobURL: "https://jobs.example/job/1"},
		{Title: "B", JobURL: "https://jobs.example/job/2"},
	})
	require.NoError(t, err)

	jobs, err := storage.ListFoundJobs(ctx, "u1", interfaces.FoundJobListOptions{})
	require.NoError(t, err)
	saved := true
	status := models.ApplicationStatusSaved
	_, err = storage.UpdateFoundJob(ctx, "u1", jobs[0].ID, interfaces.FoundJobPatch{
		Saved:             &saved,
		ApplicationStatus: &status,
	})
	require.NoError(t, err)

	savedJobs, err := storage.ListFoundJobs(ctx, "u1", interfaces.FoundJobListOptions{SavedOnly: true})
	require.NoError(t, err)
	require.Len(t, savedJobs, 1)
	assert.Equal(t, jobs[0].ID, savedJobs[0].ID)
	assert.Equal(t, models.ApplicationStatusSaved, savedJobs[0].ApplicationStatus)
}

func TestFoundJobStorage_DetachPreservesPostings(t *testing.T) {
	storage := newTestManager(t).FoundJobStorage()
	ctx := context.Background()

	_, err := storage.InsertFoundJobs(ctx, "u1", "task_1", []*models.FoundJob{
		{Title: "A", JobURL: "https://jobs.example/job/1"},
		{Title: "B", JobURL: "https://jobs.example/job/2"},
	})
	require.NoError(t, err)

	require.NoError(t, storage.DetachTask(ctx, "u1", "task_1"))

	// Postings survive in the catalog without a parent task
	byTask, err := storage.ListFoundJobs(ctx, "u1", interfaces.FoundJobListOptions{TaskID: "task_1"})
	require.NoError(t, err)
	assert.Empty(t, byTask)

	all, err := storage.ListFoundJobs(ctx, "u1", interfaces.FoundJobListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, job := range all {
		assert.Empty(t, job.AgentTaskID)
	}
}

func TestFoundJobStorage_UserIsolation(t *testing.T) {
	storage := newTestManager(t).FoundJobStorage()
	ctx := context.Background()

	_, err := storage.InsertFoundJobs(ctx, "u1", "task_1", []*models.FoundJob{
		{Title: "A", JobURL: "https://jobs.example/job/1"},
	})
	require.NoError(t, err)
	jobs, err := storage.ListFoundJobs(ctx, "u1", interfaces.FoundJobListOptions{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	_, err = storage.GetFoundJob(ctx, "u2", jobs[0].ID)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	otherJobs, err := storage.ListFoundJobs(ctx, "u2", interfaces.FoundJobListOptions{})
	require.NoError(t, err)
	assert.Empty(t, otherJobs)
}

func TestResumeStorage_SaveAndList(t *testing.T) {
	storage := newTestManager(t).ResumeStorage()
	ctx := context.Background()

	require.NoError(t, storage.SaveResume(ctx, &models.Resume{ID: "resume_1", UserID: "u1", Name: "Backend"}))
	require.NoError(t, storage.SaveResume(ctx, &models.Resume{ID: "resume_2", UserID: "u1", Name: "Analytics"}))
	require.NoError(t, storage.SaveResume(ctx, &models.Resume{ID: "resume_3", UserID: "u2", Name: "Other"}))

	resumes, err := storage.ListResumes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, resumes, 2)

	_, err = storage.GetResume(ctx, "u2", "resume_1")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	count, err := storage.CountResumes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Saving the same ID upserts
	require.NoError(t, storage.SaveResume(ctx, &models.Resume{ID: "resume_1", UserID: "u1", Name: "Backend v2"}))
	updated, err := storage.GetResume(ctx, "u1", "resume_1")
	require.NoError(t, err)
	assert.Equal(t, "Backend v2", updated.Name)
}
