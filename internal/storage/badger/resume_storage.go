package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ResumeStorage implements the ResumeStorage interface for Badger
type ResumeStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewResumeStorage creates a new ResumeStorage instance
func NewResumeStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ResumeStorage {
	return &ResumeStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ResumeStorage) SaveResume(ctx context.Context, resume *models.Resume) error {
	if resume.ID == "" {
		return fmt.Errorf("resume ID is required")
	}
	if resume.UserID == "" {
		return fmt.Errorf("resume user ID is required")
	}

	now := time.Now()
	if resume.CreatedAt.IsZero() {
		resume.CreatedAt = now
	}
	resume.UpdatedAt = now

	if err := s.db.Store().Upsert(resume.ID, resume); err != nil {
		return fmt.Errorf("failed to save resume: %w", err)
	}
	return nil
}

func (s *ResumeStorage) GetResume(ctx context.Context, userID, resumeID string) (*models.Resume, error) {
	var resume models.Resume
	if err := s.db.Store().Get(resumeID, &resume); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	if resume.UserID != userID {
		return nil, interfaces.ErrNotFound
	}
	return &resume, nil
}

func (s *ResumeStorage) ListResumes(ctx context.Context, userID string) ([]*models.Resume, error) {
	var resumes []models.Resume
	query := badgerhold.Where("UserID").Eq(userID).Index("UserID").SortBy("Name")
	if err := s.db.Store().Find(&resumes, query); err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}

	result := make([]*models.Resume, len(resumes))
	for i := range resumes {
		result[i] = &resumes[i]
	}
	return result, nil
}

func (s *ResumeStorage) CountResumes(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Resume{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count resumes: %w", err)
	}
	return int(count), nil
}
