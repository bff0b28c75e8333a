package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

// maxConsecutiveNavFailures aborts the session when navigation keeps failing
const maxConsecutiveNavFailures = 3

// PageFetcher is the browser surface the walk depends on. Production uses
// the chromedp Browser; tests substitute a canned fetcher.
type PageFetcher interface {
	Navigate(ctx context.Context, url string) (html string, landedURL string, err error)
	HumanDelay(ctx context.Context)
	Close()
}

// BrowserFactory builds the page fetcher for one run
type BrowserFactory func(ctx context.Context, config *common.ScraperConfig, logger arbor.ILogger) (PageFetcher, error)

// Service drives a real browser against the job board and writes discovered
// postings through storage as it goes. One exclusive browser session per run.
type Service struct {
	config     *common.ScraperConfig
	storage    interfaces.FoundJobStorage
	logger     arbor.ILogger
	newBrowser BrowserFactory
}

// NewService creates a scraper service using the chromedp browser
func NewService(config *common.ScraperConfig, storage interfaces.FoundJobStorage, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		storage: storage,
		logger:  logger,
		newBrowser: func(ctx context.Context, config *common.ScraperConfig, logger arbor.ILogger) (PageFetcher, error) {
			return NewBrowser(ctx, config, logger)
		},
	}
}

// NewServiceWithBrowser creates a scraper service with a custom browser
// factory. Used by tests.
func NewServiceWithBrowser(config *common.ScraperConfig, storage interfaces.FoundJobStorage, logger arbor.ILogger, factory BrowserFactory) *Service {
	return &Service{
		config:     config,
		storage:    storage,
		logger:     logger,
		newBrowser: factory,
	}
}

// Scrape walks search result pages round-robin over the requested titles
// until the target count is reached, every title is exhausted, or the run is
// cancelled. Per-listing errors are skipped; session-level failures abort.
// The returned result carries whatever partial counts were accumulated.
func (s *Service) Scrape(ctx context.Context, userID, taskID string, in *models.ScraperInstructions) (*models.ScraperResult, error) {
	titles := trimTitles(in.JobTitles)
	result := &models.ScraperResult{
		JobsRequired:      in.JobRequired,
		JobTitlesSearched: titles,
		Location:          in.Location,
	}

	if in.JobRequired <= 0 {
		result.CompletionRate = 1
		return result, nil
	}
	if len(titles) == 0 {
		return result, fmt.Errorf("%w: no job titles", interfaces.ErrValidation)
	}

	browser, err := s.newBrowser(ctx, s.config, s.logger)
	if err != nil {
		return result, err
	}
	defer browser.Close()

	targets := allocateTargets(in.JobRequired, len(titles))
	seen := make(map[string]struct{})
	consecutiveNavFailures := 0

	for i, title := range titles {
		if result.JobsFound >= in.JobRequired {
			break
		}
		if err := ctx.Err(); err != nil {
			return s.finish(result), err
		}

		// Undershoot from earlier titles rolls into the last one
		titleTarget := result.JobsFound + targets[i]
		if i == len(titles)-1 || titleTarget > in.JobRequired {
			titleTarget = in.JobRequired
		}

		s.logger.Info().
			Str("task_id", taskID).
			Str("title", title).
			Int("target", titleTarget-result.JobsFound).
			Msg("Scraping title")

		for page := 1; page <= s.config.MaxPagesPerTitle; page++ {
			if result.JobsFound >= titleTarget {
				break
			}
			if err := ctx.Err(); err != nil {
				return s.finish(result), err
			}

			searchURL := BuildSearchURL(s.config.BaseURL, title, in.Location, page)
			html, landedURL, navErr := s.navigateWithRetry(ctx, browser, searchURL)
			if navErr != nil {
				if errors.Is(navErr, context.Canceled) || errors.Is(navErr, context.DeadlineExceeded) {
					return s.finish(result), navErr
				}
				consecutiveNavFailures++
				s.logger.Warn().
					Str("url", searchURL).
					Int("consecutive_failures", consecutiveNavFailures).
					Err(navErr).
					Msg("Search page navigation failed")
				if consecutiveNavFailures >= maxConsecutiveNavFailures {
					return s.finish(result), fmt.Errorf("%w: %d consecutive navigation failures", interfaces.ErrUpstreamBrowser, consecutiveNavFailures)
				}
				break // next title
			}

			if IsBlockedURL(landedURL) {
				consecutiveNavFailures++
				s.logger.Warn().
					Str("landed_url", landedURL).
					Str("title", title).
					Msg("Bot challenge detected, skipping title")
				if consecutiveNavFailures >= maxConsecutiveNavFailures {
					return s.finish(result), fmt.Errorf("%w: blocked by bot challenge", interfaces.ErrUpstreamBrowser)
				}
				break
			}
			consecutiveNavFailures = 0

			cards, parseErr := ParseResultCards(html, s.config.BaseURL)
			if parseErr != nil {
				s.logger.Warn().Err(parseErr).Str("url", searchURL).Msg("Failed to parse result page")
				break
			}
			if len(cards) == 0 {
				// Title exhausted; silently move on
				break
			}

			for _, card := range cards {
				if result.JobsFound >= titleTarget {
					break
				}
				if err := ctx.Err(); err != nil {
					return s.finish(result), err
				}

				if card.JobURL != "" {
					if _, dup := seen[card.JobURL]; dup {
						continue
					}
					seen[card.JobURL] = struct{}{}
				}

				job := s.enrichListing(ctx, browser, card)

				inserted, insertErr := s.storage.InsertFoundJobs(ctx, userID, taskID, []*models.FoundJob{job})
				if insertErr != nil {
					s.logger.Warn().Err(insertErr).Str("job_url", card.JobURL).Msg("Failed to insert found job")
					continue
				}
				result.JobsFound += inserted
			}

			browser.HumanDelay(ctx)
		}
	}

	return s.finish(result), nil
}

// enrichListing opens the detail view for description and work type.
// Per-listing failures default the fields; the listing is still emitted.
func (s *Service) enrichListing(ctx context.Context, browser PageFetcher, card ResultCard) *models.FoundJob {
	job := &models.FoundJob{
		Title:               orNA(card.Title),
		Company:             orNA(card.Company),
		Location:            orNA(card.Location),
		Salary:              orNA(card.Salary),
		JobURL:              card.JobURL,
		WorkType:            models.FieldNotAvailable,
		DetailedDescription: models.FieldNotAvailable,
		SourcePlatform:      s.config.SourcePlatform,
		ApplicationStatus:   models.ApplicationStatusAgentFound,
	}

	if card.JobURL == "" {
		return job
	}

	browser.HumanDelay(ctx)

	html, landedURL, err := browser.Navigate(ctx, card.JobURL)
	if err != nil || IsBlockedURL(landedURL) {
		s.logger.Debug().
			Str("job_url", card.JobURL).
			Err(err).
			Msg("Detail page unavailable, emitting listing with defaults")
		return job
	}

	detail, err := ParseJobDetail(html)
	if err != nil {
		return job
	}
	job.DetailedDescription = detail.Description
	job.WorkType = detail.WorkType
	return job
}

// navigateWithRetry retries a navigation with exponential backoff, the
// anti-detection policy for 429/403 responses
func (s *Service) navigateWithRetry(ctx context.Context, browser PageFetcher, url string) (string, string, error) {
	var lastErr error
	retries := s.config.MaxNavRetries
	if retries <= 0 {
		retries = 1
	}

	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-ctx.Done():
				return "", "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		html, landedURL, err := browser.Navigate(ctx, url)
		if err == nil {
			return html, landedURL, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", "", err
		}
		lastErr = err
	}

	return "", "", lastErr
}

func (s *Service) finish(result *models.ScraperResult) *models.ScraperResult {
	if result.JobsRequired > 0 {
		rate := float64(result.JobsFound) / float64(result.JobsRequired)
		if rate > 1 {
			rate = 1
		}
		result.CompletionRate = rate
	} else {
		result.CompletionRate = 1
	}
	return result
}

// allocateTargets splits the required count evenly across titles, remainder
// to the last title
func allocateTargets(required, titleCount int) []int {
	targets := make([]int, titleCount)
	if titleCount == 0 {
		return targets
	}
	per := required / titleCount
	for i := range targets {
		targets[i] = per
	}
	targets[titleCount-1] += required - per*titleCount
	return targets
}

func trimTitles(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.FieldNotAvailable
	}
	return s
}
