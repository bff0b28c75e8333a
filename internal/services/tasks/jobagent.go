package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/scout/internal/models"
)

// runJobAgent executes the composite pipeline under a single task record:
// verify the resume, scrape, then score the just-discovered postings. The
// returned result always reports the stage reached, so a failure in matching
// still surfaces the jobs found in scraping.
func (e *Engine) runJobAgent(ctx context.Context, task *models.Task, in *models.JobAgentInstructions) (*models.JobAgentResult, error) {
	result := &models.JobAgentResult{Stage: models.StageScraping}

	// Verify the resume before any scraping work is spent
	if _, err := e.storage.ResumeStorage().GetResume(ctx, task.UserID, in.ResumeID); err != nil {
		return result, fmt.Errorf("resume %s: %w", in.ResumeID, err)
	}

	scrapeResult, err := e.scraper.Scrape(ctx, task.UserID, task.ID, &models.ScraperInstructions{
		JobTitles:   in.JobTitles,
		Location:    in.Location,
		JobRequired: in.JobRequired,
	})
	if scrapeResult != nil {
		result.JobsFound = scrapeResult.JobsFound
	}
	if err != nil {
		return result, fmt.Errorf("scraping stage: %w", err)
	}

	// Nothing to score is a successful, if empty, run
	if result.JobsFound == 0 {
		result.Stage = models.StageScraping
		return result, nil
	}

	result.Stage = models.StageMatching
	matchResult, err := e.matcher.Match(ctx, task.UserID, task.ID, &models.MatcherInstructions{
		ResumeID: in.ResumeID,
		TaskID:   task.ID,
		AIModel:  in.AIModel,
	})
	if matchResult != nil {
		result.SuccessfulAnalyses = matchResult.SuccessfulAnalyses
		result.FailedAnalyses = matchResult.FailedAnalyses
		result.AverageScore = matchResult.AverageScore
	}
	if err != nil {
		// FoundJobs inserted in the scraping stage survive this failure
		return result, fmt.Errorf("matching stage: %w", err)
	}

	result.Stage = models.StageCompleted
	return result, nil
}

// marshalResult serializes a typed execution result for the task row
func marshalResult(result any) (string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
