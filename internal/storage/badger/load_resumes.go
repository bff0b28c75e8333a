package badger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

// LoadResumesFromFiles loads resume seed files (TOML) from the specified
// directory into resume storage. One resume per file; the filename (without
// extension) becomes the resume ID when the file does not set one. Files
// that fail to parse are skipped, not fatal.
func LoadResumesFromFiles(ctx context.Context, resumeStorage interfaces.ResumeStorage, dirPath string, logger arbor.ILogger) error {
	logger.Debug().Str("dir", dirPath).Msg("Loading resumes from files")

	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		logger.Debug().Str("dir", dirPath).Msg("Resumes directory does not exist, skipping")
		return nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dirPath).Msg("Failed to read resumes directory")
		return nil // Non-fatal
	}

	loadedCount := 0
	errorCount := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		filePath := filepath.Join(dirPath, entry.Name())
		content, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read resume file")
			errorCount++
			continue
		}

		var resume models.Resume
		if err := toml.Unmarshal(content, &resume); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse resume file")
			errorCount++
			continue
		}

		if resume.ID == "" {
			resume.ID = strings.TrimSuffix(entry.Name(), ".toml")
		}
		if resume.UserID == "" {
			logger.Warn().
				Str("file", entry.Name()).
				Msg("Skipping resume: user_id is required")
			errorCount++
			continue
		}
		if resume.Name == "" {
			resume.Name = resume.PersonalInfo.FullName
		}

		if err := resumeStorage.SaveResume(ctx, &resume); err != nil {
			logger.Warn().Err(err).Str("resume", resume.ID).Msg("Failed to save resume")
			errorCount++
			continue
		}

		logger.Debug().Str("resume", resume.ID).Str("user", resume.UserID).Msg("Loaded resume")
		loadedCount++
	}

	logger.Info().
		Int("loaded", loadedCount).
		Int("errors", errorCount).
		Msg("Finished loading resumes from files")

	return nil
}
