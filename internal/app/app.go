package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/handlers"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/services/llm"
	"github.com/ternarybob/scout/internal/services/matcher"
	"github.com/ternarybob/scout/internal/services/scraper"
	"github.com/ternarybob/scout/internal/services/tasks"
	"github.com/ternarybob/scout/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Pipeline services
	ScorerFactory  *llm.ScorerFactory
	ScraperService *scraper.Service
	MatcherService *matcher.Service
	Engine         *tasks.Engine

	// HTTP handlers
	TaskHandler     *handlers.TaskHandler
	FoundJobHandler *handlers.FoundJobHandler
	ResumeHandler   *handlers.ResumeHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storage, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storage

	// Seed resumes from the configured directory before serving traffic
	if cfg.Resumes.Dir != "" {
		if loader, ok := storage.(interface {
			LoadResumesFromFiles(ctx context.Context, dirPath string) error
		}); ok {
			if err := loader.LoadResumesFromFiles(context.Background(), cfg.Resumes.Dir); err != nil {
				logger.Warn().Str("dir", cfg.Resumes.Dir).Err(err).Msg("Resume seeding failed")
			}
		}
	}

	app.ScorerFactory = llm.NewScorerFactory(&cfg.LLM, logger)
	app.ScraperService = scraper.NewService(&cfg.Scraper, storage.FoundJobStorage(), logger)
	app.MatcherService = matcher.NewService(storage, app.ScorerFactory, &cfg.Engine, logger)
	app.Engine = tasks.NewEngine(storage, app.ScraperService, app.MatcherService, &cfg.Engine, logger)

	app.TaskHandler = handlers.NewTaskHandler(app.Engine, storage, logger)
	app.FoundJobHandler = handlers.NewFoundJobHandler(storage, logger)
	app.ResumeHandler = handlers.NewResumeHandler(storage, logger)

	logger.Info().
		Str("environment", cfg.Environment).
		Msg("Application initialized")

	return app, nil
}

// Close releases application resources
func (a *App) Close() error {
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
			return err
		}
	}
	return nil
}
