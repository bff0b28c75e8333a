package badger

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	task     interfaces.TaskStorage
	foundJob interfaces.FoundJobStorage
	resume   interfaces.ResumeStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		task:     NewTaskStorage(db, logger),
		foundJob: NewFoundJobStorage(db, logger),
		resume:   NewResumeStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// TaskStorage returns the Task storage interface
func (m *Manager) TaskStorage() interfaces.TaskStorage {
	return m.task
}

// FoundJobStorage returns the FoundJob storage interface
func (m *Manager) FoundJobStorage() interfaces.FoundJobStorage {
	return m.foundJob
}

// ResumeStorage returns the Resume storage interface
func (m *Manager) ResumeStorage() interfaces.ResumeStorage {
	return m.resume
}

// LoadResumesFromFiles seeds resume storage from TOML files
func (m *Manager) LoadResumesFromFiles(ctx context.Context, dirPath string) error {
	return LoadResumesFromFiles(ctx, m.resume, dirPath, m.logger)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
