package interfaces

import (
	"context"

	"github.com/ternarybob/scout/internal/models"
)

// ScraperRunner harvests postings from the job board for one task. It writes
// FoundJobs through storage as it goes and returns the run summary. The
// context carries cancellation and the task's wall-clock budget; the runner
// polls it between listings.
type ScraperRunner interface {
	Scrape(ctx context.Context, userID, taskID string, in *models.ScraperInstructions) (*models.ScraperResult, error)
}

// MatcherRunner scores a task's unscored postings against a resume. Per-job
// failures are counted, not fatal; the run fails only when no posting could
// be scored at all.
type MatcherRunner interface {
	Match(ctx context.Context, userID, taskID string, in *models.MatcherInstructions) (*models.MatcherResult, error)
}
