package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
	"github.com/ternarybob/scout/internal/storage/badger"
)

type fakeScraper struct {
	fn func(ctx context.Context, userID, taskID string, in *models.ScraperInstructions) (*models.ScraperResult, error)
}

func (f *fakeScraper) Scrape(ctx context.Context, userID, taskID string, in *models.ScraperInstructions) (*models.ScraperResult, error) {
	return f.fn(ctx, userID, taskID, in)
}

type fakeMatcher struct {
	fn func(ctx context.Context, userID, taskID string, in *models.MatcherInstructions) (*models.MatcherResult, error)
}

func (f *fakeMatcher) Match(ctx context.Context, userID, taskID string, in *models.MatcherInstructions) (*models.MatcherResult, error) {
	return f.fn(ctx, userID, taskID, in)
}

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	storage, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func newTestEngine(storage interfaces.StorageManager, scraper interfaces.ScraperRunner, matcher interfaces.MatcherRunner, config *common.EngineConfig) *Engine {
	if config == nil {
		config = &common.EngineConfig{MaxActivePerUser: 2}
	}
	if scraper == nil {
		scraper = &fakeScraper{fn: func(context.Context, string, string, *models.ScraperInstructions) (*models.ScraperResult, error) {
			return &models.ScraperResult{}, nil
		}}
	}
	if matcher == nil {
		matcher = &fakeMatcher{fn: func(context.Context, string, string, *models.MatcherInstructions) (*models.MatcherResult, error) {
			return &models.MatcherResult{}, nil
		}}
	}
	return NewEngine(storage, scraper, matcher, config, arbor.NewLogger())
}

func scraperInstructions() *models.ScraperInstructions {
	return &models.ScraperInstructions{
		JobTitles:   []string{"engineer"},
		Location:    "sydney",
		JobRequired: 5,
	}
}

func TestCreateAndRun_CompletesAndRecordsResult(t *testing.T) {
	storage := newTestStorage(t)
	scraper := &fakeScraper{fn: func(_ context.Context, _, _ string, in *models.ScraperInstructions) (*models.ScraperResult, error) {
		return &models.ScraperResult{
			JobsFound:      5,
			JobsRequired:   in.JobRequired,
			CompletionRate: 1,
		}, nil
	}}
	engine := newTestEngine(storage, scraper, nil, nil)

	task, done, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "scrape", scraperInstructions())
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	assert.Equal(t, models.TaskStatusPending, task.Status)

	<-done

	final, err := engine.GetTask(context.Background(), "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, final.Status)
	assert.False(t, final.StartedAt.IsZero())
	assert.False(t, final.CompletedAt.IsZero())

	var result models.ScraperResult
	require.NoError(t, final.GetResult(&result))
	assert.Equal(t, 5, result.JobsFound)
}

func TestCreateAndRun_FailureRecordsMessage(t *testing.T) {
	storage := newTestStorage(t)
	scraper := &fakeScraper{fn: func(context.Context, string, string, *models.ScraperInstructions) (*models.ScraperResult, error) {
		return &models.ScraperResult{JobsFound: 1}, errors.New("browser exploded")
	}}
	engine := newTestEngine(storage, scraper, nil, nil)

	task, done, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "scrape", scraperInstructions())
	require.NoError(t, err)
	<-done

	final, err := engine.GetTask(context.Background(), "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, final.Status)
	assert.Equal(t, "browser exploded", final.OtherMessage)

	// Partial counts survive the failure
	var result models.ScraperResult
	require.NoError(t, final.GetResult(&result))
	assert.Equal(t, 1, result.JobsFound)
}

func TestCreateAndRun_InvalidInstructionsRejected(t *testing.T) {
	storage := newTestStorage(t)
	engine := newTestEngine(storage, nil, nil, nil)

	_, _, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "scrape", &models.ScraperInstructions{
		Location:    "sydney",
		JobRequired: 5,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrValidation)

	// No task row is created for rejected instructions
	tasks, err := engine.ListTasks(context.Background(), "u1", interfaces.TaskListOptions{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCreateAndRun_PanicBecomesFailedTask(t *testing.T) {
	storage := newTestStorage(t)
	scraper := &fakeScraper{fn: func(context.Context, string, string, *models.ScraperInstructions) (*models.ScraperResult, error) {
		panic("nil dereference in walker")
	}}
	engine := newTestEngine(storage, scraper, nil, nil)

	task, done, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "scrape", scraperInstructions())
	require.NoError(t, err)
	<-done

	final, err := engine.GetTask(context.Background(), "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, final.Status)
	assert.Contains(t, final.OtherMessage, "internal error")
}

func TestCancelTask_RunningTaskIsCancelled(t *testing.T) {
	storage := newTestStorage(t)
	started := make(chan struct{})
	scraper := &fakeScraper{fn: func(ctx context.Context, _, _ string, _ *models.ScraperInstructions) (*models.ScraperResult, error) {
		close(started)
		<-ctx.Done()
		return &models.ScraperResult{JobsFound: 2}, ctx.Err()
	}}
	engine := newTestEngine(storage, scraper, nil, nil)

	task, done, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "scrape", scraperInstructions())
	require.NoError(t, err)

	<-started
	require.NoError(t, engine.CancelTask(context.Background(), "u1", task.ID))
	<-done

	final, err := engine.GetTask(context.Background(), "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, final.Status)
	assert.Equal(t, "cancelled by user", final.OtherMessage)

	// Partial result survives cancellation
	var result models.ScraperResult
	require.NoError(t, final.GetResult(&result))
	assert.Equal(t, 2, result.JobsFound)
}

func TestCancelTask_TerminalTaskIsNoOp(t *testing.T) {
	storage := newTestStorage(t)
	engine := newTestEngine(storage, nil, nil, nil)

	task, done, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "scrape", scraperInstructions())
	require.NoError(t, err)
	<-done

	// Repeated cancellation of a finished task reports success and does not
	// disturb the terminal status
	require.NoError(t, engine.CancelTask(context.Background(), "u1", task.ID))
	require.NoError(t, engine.CancelTask(context.Background(), "u1", task.ID))

	final, err := engine.GetTask(context.Background(), "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, final.Status)
}

func TestCancelTask_OtherUserCannotCancel(t *testing.T) {
	storage := newTestStorage(t)
	engine := newTestEngine(storage, nil, nil, nil)

	task, done, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "scrape", scraperInstructions())
	require.NoError(t, err)
	<-done

	err = engine.CancelTask(context.Background(), "u2", task.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestCreateAndRun_DeadlineFailsTask(t *testing.T) {
	storage := newTestStorage(t)
	scraper := &fakeScraper{fn: func(ctx context.Context, _, _ string, _ *models.ScraperInstructions) (*models.ScraperResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	engine := newTestEngine(storage, scraper, nil, &common.EngineConfig{
		MaxActivePerUser: 2,
		ScraperBudget:    50 * time.Millisecond,
	})

	task, done, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "scrape", scraperInstructions())
	require.NoError(t, err)
	<-done

	final, err := engine.GetTask(context.Background(), "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, final.Status)
	assert.Equal(t, "deadline exceeded", final.OtherMessage)
}

func TestCreateAndRun_PerUserCapQueuesExcessTasks(t *testing.T) {
	storage := newTestStorage(t)
	release := make(chan struct{})
	firstStarted := make(chan struct{})
	scraper := &fakeScraper{fn: func(ctx context.Context, _, taskID string, _ *models.ScraperInstructions) (*models.ScraperResult, error) {
		select {
		case firstStarted <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return &models.ScraperResult{}, nil
	}}
	engine := newTestEngine(storage, scraper, nil, &common.EngineConfig{MaxActivePerUser: 1})

	first, firstDone, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "one", scraperInstructions())
	require.NoError(t, err)
	<-firstStarted

	second, secondDone, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "two", scraperInstructions())
	require.NoError(t, err)

	// The second task waits behind the cap: still pending, never started
	time.Sleep(100 * time.Millisecond)
	queued, err := engine.GetTask(context.Background(), "u1", second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, queued.Status)

	close(release)
	<-firstDone
	<-secondDone

	for _, id := range []string{first.ID, second.ID} {
		final, err := engine.GetTask(context.Background(), "u1", id)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusCompleted, final.Status)
	}
}

func TestCancelTask_QueuedTaskSkipsExecution(t *testing.T) {
	storage := newTestStorage(t)
	release := make(chan struct{})
	started := make(chan struct{})
	scraper := &fakeScraper{fn: func(ctx context.Context, _, _ string, _ *models.ScraperInstructions) (*models.ScraperResult, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return &models.ScraperResult{}, nil
	}}
	engine := newTestEngine(storage, scraper, nil, &common.EngineConfig{MaxActivePerUser: 1})

	_, firstDone, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "one", scraperInstructions())
	require.NoError(t, err)
	<-started

	second, secondDone, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "two", scraperInstructions())
	require.NoError(t, err)

	// Cancel the queued task before it dispatches
	require.NoError(t, engine.CancelTask(context.Background(), "u1", second.ID))

	close(release)
	<-firstDone
	<-secondDone

	final, err := engine.GetTask(context.Background(), "u1", second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, final.Status)
}

func TestRunJobAgent_MatcherFailureKeepsScrapeCounts(t *testing.T) {
	storage := newTestStorage(t)

	scraper := &fakeScraper{fn: func(_ context.Context, userID, taskID string, _ *models.ScraperInstructions) (*models.ScraperResult, error) {
		jobs := []*models.FoundJob{
			{Title: "A", JobURL: "https://jobs.example/job/1"},
			{Title: "B", JobURL: "https://jobs.example/job/2"},
			{Title: "C", JobURL: "https://jobs.example/job/3"},
		}
		_, err := storage.FoundJobStorage().InsertFoundJobs(context.Background(), userID, taskID, jobs)
		return &models.ScraperResult{JobsFound: 3, JobsRequired: 3, CompletionRate: 1}, err
	}}
	matcher := &fakeMatcher{fn: func(context.Context, string, string, *models.MatcherInstructions) (*models.MatcherResult, error) {
		return &models.MatcherResult{TotalAnalyzed: 3, FailedAnalyses: 3},
			errors.New("all 3 analyses failed")
	}}
	engine := newTestEngine(storage, scraper, matcher, nil)

	require.NoError(t, storage.ResumeStorage().SaveResume(context.Background(), &models.Resume{ID: "resume_1", UserID: "u1", Name: "Primary"}))

	task, done, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeJobAgent, "agent", &models.JobAgentInstructions{
		JobTitles:   []string{"engineer"},
		Location:    "sydney",
		JobRequired: 3,
		ResumeID:    "resume_1",
		AIModel:     "openai",
	})
	require.NoError(t, err)
	<-done

	final, err := engine.GetTask(context.Background(), "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, final.Status)
	assert.Contains(t, final.OtherMessage, "matching stage")

	// The stage and scrape counts are preserved in the result snapshot, and
	// the postings remain in the catalog
	var result models.JobAgentResult
	require.NoError(t, final.GetResult(&result))
	assert.Equal(t, models.StageMatching, result.Stage)
	assert.Equal(t, 3, result.JobsFound)

	jobs, err := storage.FoundJobStorage().ListFoundJobs(context.Background(), "u1", interfaces.FoundJobListOptions{TaskID: task.ID})
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func TestRunJobAgent_MissingResumeFailsBeforeScraping(t *testing.T) {
	storage := newTestStorage(t)
	scraped := false
	scraper := &fakeScraper{fn: func(context.Context, string, string, *models.ScraperInstructions) (*models.ScraperResult, error) {
		scraped = true
		return &models.ScraperResult{}, nil
	}}
	engine := newTestEngine(storage, scraper, nil, nil)

	task, done, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeJobAgent, "agent", &models.JobAgentInstructions{
		JobTitles:   []string{"engineer"},
		Location:    "sydney",
		JobRequired: 3,
		ResumeID:    "resume_missing",
		AIModel:     "openai",
	})
	require.NoError(t, err)
	<-done

	final, err := engine.GetTask(context.Background(), "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, final.Status)
	assert.False(t, scraped)
}

func TestUpdateTask_RecurrenceScheduleValidated(t *testing.T) {
	storage := newTestStorage(t)
	engine := newTestEngine(storage, nil, nil, nil)

	task, done, err := engine.CreateAndRun(context.Background(), "u1", models.TaskTypeSeekScraper, "scrape", scraperInstructions())
	require.NoError(t, err)
	<-done

	// A malformed schedule never reaches the store
	bad := "every monday at nine"
	_, err = engine.UpdateTask(context.Background(), "u1", task.ID, interfaces.TaskPatch{RecurrenceConfig: &bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrValidation)

	unchanged, err := engine.GetTask(context.Background(), "u1", task.ID)
	require.NoError(t, err)
	assert.Empty(t, unchanged.RecurrenceConfig)
	assert.False(t, unchanged.IsRecurring)

	// A valid cron expression persists alongside the recurring flag
	recurring := true
	schedule := "0 9 * * 1"
	updated, err := engine.UpdateTask(context.Background(), "u1", task.ID, interfaces.TaskPatch{
		IsRecurring:      &recurring,
		RecurrenceConfig: &schedule,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsRecurring)
	assert.Equal(t, schedule, updated.RecurrenceConfig)
}
