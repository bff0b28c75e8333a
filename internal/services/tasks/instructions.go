package tasks

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

var validate = validator.New()

// ValidateInstructions checks a typed instruction variant against its
// declared constraints. Returns ErrValidation so handlers map to 400 and the
// task row is never created.
func ValidateInstructions(in any) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}
	return nil
}

// DecodeScraperInstructions reads and validates a seek_scraper task's
// instruction snapshot
func DecodeScraperInstructions(task *models.Task) (*models.ScraperInstructions, error) {
	var in models.ScraperInstructions
	if err := task.GetInstructions(&in); err != nil {
		return nil, fmt.Errorf("%w: malformed scraper instructions: %v", interfaces.ErrValidation, err)
	}
	if err := ValidateInstructions(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// DecodeMatcherInstructions reads and validates a resume_job_matching task's
// instruction snapshot
func DecodeMatcherInstructions(task *models.Task) (*models.MatcherInstructions, error) {
	var in models.MatcherInstructions
	if err := task.GetInstructions(&in); err != nil {
		return nil, fmt.Errorf("%w: malformed matcher instructions: %v", interfaces.ErrValidation, err)
	}
	if err := ValidateInstructions(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// DecodeJobAgentInstructions reads and validates a job_agent task's
// instruction snapshot
func DecodeJobAgentInstructions(task *models.Task) (*models.JobAgentInstructions, error) {
	var in models.JobAgentInstructions
	if err := task.GetInstructions(&in); err != nil {
		return nil, fmt.Errorf("%w: malformed job agent instructions: %v", interfaces.ErrValidation, err)
	}
	if err := ValidateInstructions(&in); err != nil {
		return nil, err
	}
	return &in, nil
}
