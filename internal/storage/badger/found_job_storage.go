package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// FoundJobStorage implements the FoundJobStorage interface for Badger
type FoundJobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFoundJobStorage creates a new FoundJobStorage instance
func NewFoundJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FoundJobStorage {
	return &FoundJobStorage{
		db:     db,
		logger: logger,
	}
}

// InsertFoundJobs inserts postings in discovery order, skipping any whose
// job_url already exists for the same (user, task). Returns the number
// actually inserted.
func (s *FoundJobStorage) InsertFoundJobs(ctx context.Context, userID, taskID string, jobs []*models.FoundJob) (int, error) {
	existing, err := s.taskJobURLs(userID, taskID)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, job := range jobs {
		if job.JobURL != "" {
			if _, dup := existing[job.JobURL]; dup {
				continue
			}
		}

		if job.ID == "" {
			job.ID = common.NewJobID()
		}
		job.UserID = userID
		job.AgentTaskID = taskID
		if job.ApplicationStatus == "" {
			job.ApplicationStatus = models.ApplicationStatusAgentFound
		}
		now := time.Now()
		job.CreatedAt = now
		job.UpdatedAt = now

		if err := s.db.Store().Insert(job.ID, job); err != nil {
			return inserted, fmt.Errorf("failed to insert found job: %w", err)
		}
		if job.JobURL != "" {
			existing[job.JobURL] = struct{}{}
		}
		inserted++
	}

	return inserted, nil
}

func (s *FoundJobStorage) taskJobURLs(userID, taskID string) (map[string]struct{}, error) {
	var jobs []models.FoundJob
	query := badgerhold.Where("UserID").Eq(userID).Index("UserID").And("AgentTaskID").Eq(taskID)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to load existing job urls: %w", err)
	}

	urls := make(map[string]struct{}, len(jobs))
	for i := range jobs {
		if jobs[i].JobURL != "" {
			urls[jobs[i].JobURL] = struct{}{}
		}
	}
	return urls, nil
}

func (s *FoundJobStorage) GetFoundJob(ctx context.Context, userID, jobID string) (*models.FoundJob, error) {
	var job models.FoundJob
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get found job: %w", err)
	}
	if job.UserID != userID {
		return nil, interfaces.ErrNotFound
	}
	return &job, nil
}

func (s *FoundJobStorage) ListFoundJobs(ctx context.Context, userID string, opts interfaces.FoundJobListOptions) ([]*models.FoundJob, error) {
	query := badgerhold.Where("UserID").Eq(userID).Index("UserID")

	if opts.TaskID != "" {
		query = query.And("AgentTaskID").Eq(opts.TaskID)
	}
	if opts.SavedOnly {
		query = query.And("Saved").Eq(true)
	}

	query = query.SortBy("CreatedAt").Reverse()

	var jobs []models.FoundJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list found jobs: %w", err)
	}

	result := make([]*models.FoundJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *FoundJobStorage) ListUnscoredJobs(ctx context.Context, userID, taskID string) ([]*models.FoundJob, error) {
	jobs, err := s.ListFoundJobs(ctx, userID, interfaces.FoundJobListOptions{TaskID: taskID})
	if err != nil {
		return nil, err
	}

	unscored := make([]*models.FoundJob, 0, len(jobs))
	for _, job := range jobs {
		if job.MatchScore == nil {
			unscored = append(unscored, job)
		}
	}
	return unscored, nil
}

func (s *FoundJobStorage) UpdateFoundJob(ctx context.Context, userID, jobID string, patch interfaces.FoundJobPatch) (*models.FoundJob, error) {
	job, err := s.GetFoundJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	if patch.Saved != nil {
		job.Saved = *patch.Saved
	}
	// Score and analysis are written together; last writer wins among
	// scoring retries
	if patch.MatchScore != nil {
		score := models.ClampScore(*patch.MatchScore)
		job.MatchScore = &score
		job.AIAnalysis = patch.Analysis
	}
	if patch.ApplicationStatus != nil {
		job.ApplicationStatus = *patch.ApplicationStatus
	}

	job.UpdatedAt = time.Now()

	if err := s.db.Store().Update(job.ID, job); err != nil {
		return nil, fmt.Errorf("failed to update found job: %w", err)
	}
	return job, nil
}

// DetachTask nulls agent_task_id on the task's postings so they survive task
// deletion in the user's catalog
func (s *FoundJobStorage) DetachTask(ctx context.Context, userID, taskID string) error {
	jobs, err := s.ListFoundJobs(ctx, userID, interfaces.FoundJobListOptions{TaskID: taskID})
	if err != nil {
		return err
	}

	for _, job := range jobs {
		job.AgentTaskID = ""
		job.UpdatedAt = time.Now()
		if err := s.db.Store().Update(job.ID, job); err != nil {
			return fmt.Errorf("failed to detach found job %s: %w", job.ID, err)
		}
	}
	return nil
}
