package matcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
	"github.com/ternarybob/scout/internal/services/workers"
	"golang.org/x/time/rate"
)

// maxJobDescription bounds the description sent to the scoring prompt
const maxJobDescription = 2000

// Service scores a task's unscored postings against a resume in batches.
// Calls are sequential within a batch to respect provider rate limits, with
// a small number of batches in flight; batch starts are paced about a second
// apart. Per-posting failures are counted, never fatal on their own.
type Service struct {
	storage interfaces.StorageManager
	scorers interfaces.ScorerFactory
	config  *common.EngineConfig
	logger  arbor.ILogger
	pacer   *rate.Limiter
}

// NewService creates a matcher service
func NewService(storage interfaces.StorageManager, scorers interfaces.ScorerFactory, config *common.EngineConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		scorers: scorers,
		config:  config,
		logger:  logger,
		pacer:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

type counters struct {
	mu         sync.Mutex
	successful int
	failed     int
	scoreSum   int
	lastErr    error
}

// Match scores the source task's unscored postings. An empty source
// completes immediately with zero counts; a run where every posting fails
// returns the counters plus an error so the engine fails the task.
func (s *Service) Match(ctx context.Context, userID, taskID string, in *models.MatcherInstructions) (*models.MatcherResult, error) {
	result := &models.MatcherResult{
		ResumeID: in.ResumeID,
		AIModel:  in.AIModel,
	}

	// Preconditions: source task and resume must exist for this user
	if _, err := s.storage.TaskStorage().GetTask(ctx, userID, in.TaskID); err != nil {
		return result, fmt.Errorf("source task %s: %w", in.TaskID, err)
	}
	resume, err := s.storage.ResumeStorage().GetResume(ctx, userID, in.ResumeID)
	if err != nil {
		return result, fmt.Errorf("resume %s: %w", in.ResumeID, err)
	}

	scorer, err := s.scorers.ScorerFor(in.AIModel)
	if err != nil {
		return result, err
	}

	jobs, err := s.storage.FoundJobStorage().ListUnscoredJobs(ctx, userID, in.TaskID)
	if err != nil {
		return result, err
	}
	if len(jobs) == 0 {
		return result, nil
	}

	resumeSummary := resume.ScoringSummary()
	batches := partition(jobs, s.batchSize())

	s.logger.Info().
		Str("task_id", taskID).
		Str("provider", in.AIModel).
		Int("jobs", len(jobs)).
		Int("batches", len(batches)).
		Msg("Starting resume matching")

	counts := &counters{}
	pool := workers.NewPool(ctx, s.maxBatches(), s.logger)
	pool.Start()

	for _, batch := range batches {
		// Cancellation is polled between batch starts
		if err := ctx.Err(); err != nil {
			break
		}
		if err := s.pacer.Wait(ctx); err != nil {
			break
		}

		batch := batch
		if err := pool.Submit(func(jobCtx context.Context) error {
			s.scoreBatch(jobCtx, scorer, userID, resumeSummary, batch, counts)
			return jobCtx.Err()
		}); err != nil {
			break
		}
	}

	pool.Wait()

	if aborted := pool.Errors(); len(aborted) > 0 {
		s.logger.Warn().
			Str("task_id", taskID).
			Int("aborted_batches", len(aborted)).
			Msg("Batches aborted before completing")
	}

	result.TotalAnalyzed = counts.successful + counts.failed
	result.SuccessfulAnalyses = counts.successful
	result.FailedAnalyses = counts.failed
	if counts.successful > 0 {
		result.AverageScore = counts.scoreSum / counts.successful
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Failing every posting fails the run; partial success completes it
	if counts.successful == 0 && counts.failed > 0 {
		return result, fmt.Errorf("%w: all %d analyses failed: %v", interfaces.ErrUpstreamLLM, counts.failed, counts.lastErr)
	}

	return result, nil
}

// scoreBatch scores one batch sequentially. Score and analysis are written
// together per posting; a failed call leaves the posting unscored.
func (s *Service) scoreBatch(ctx context.Context, scorer interfaces.Scorer, userID string, resumeSummary map[string]any, batch []*models.FoundJob, counts *counters) {
	for _, job := range batch {
		if ctx.Err() != nil {
			return
		}

		analysis, err := scorer.ScoreResume(ctx, resumeSummary, job.ScoringSummary(maxJobDescription))
		if err != nil {
			counts.mu.Lock()
			counts.failed++
			counts.lastErr = err
			counts.mu.Unlock()

			s.logger.Warn().
				Str("job_id", job.ID).
				Err(err).
				Msg("Scoring failed for posting")
			continue
		}

		score := models.ClampScore(analysis.MatchingScore)
		_, updateErr := s.storage.FoundJobStorage().UpdateFoundJob(ctx, userID, job.ID, interfaces.FoundJobPatch{
			MatchScore: &score,
			Analysis:   analysis.Analysis(),
		})
		if updateErr != nil {
			counts.mu.Lock()
			counts.failed++
			counts.lastErr = updateErr
			counts.mu.Unlock()

			s.logger.Warn().
				Str("job_id", job.ID).
				Err(updateErr).
				Msg("Failed to persist score")
			continue
		}

		counts.mu.Lock()
		counts.successful++
		counts.scoreSum += score
		counts.mu.Unlock()
	}
}

func (s *Service) batchSize() int {
	if s.config.MatcherBatchSize > 0 {
		return s.config.MatcherBatchSize
	}
	return 5
}

func (s *Service) maxBatches() int {
	if s.config.MatcherMaxBatches > 0 {
		return s.config.MatcherMaxBatches
	}
	return 2
}

func partition(jobs []*models.FoundJob, size int) [][]*models.FoundJob {
	var batches [][]*models.FoundJob
	for start := 0; start < len(jobs); start += size {
		end := start + size
		if end > len(jobs) {
			end = len(jobs)
		}
		batches = append(batches, jobs[start:end])
	}
	return batches
}
