package models

import (
	"encoding/json"
	"time"
)

// Application status values for found jobs
const (
	ApplicationStatusAgentFound = "agent_found"
	ApplicationStatusSaved      = "saved"
	ApplicationStatusApplied    = "applied"
	ApplicationStatusRejected   = "rejected"
)

// FieldNotAvailable is the placeholder for listing fields the scraper could
// not extract. Listings with missing fields are still emitted.
const FieldNotAvailable = "N/A"

// FoundJob is a posting discovered by a scraper run, optionally scored later.
//
// FoundJobs belong to the user, not the task: deleting the parent task nulls
// AgentTaskID but preserves the posting. MatchScore and AIAnalysis are set
// together by a successful scoring attempt; failed attempts leave both nil.
type FoundJob struct {
	ID          string `json:"id" badgerhold:"key"`
	UserID      string `json:"user_id" badgerhold:"index"`
	AgentTaskID string `json:"agent_task_id,omitempty" badgerhold:"index"`

	Title               string `json:"title"`
	Company             string `json:"company"`
	Location            string `json:"location"`
	Salary              string `json:"salary"`
	JobURL              string `json:"job_url"`
	WorkType            string `json:"work_type"`
	DetailedDescription string `json:"detailed_description"`
	SourcePlatform      string `json:"source_platform"`
	ApplicationStatus   string `json:"application_status"`

	MatchScore *int        `json:"match_score,omitempty"`
	AIAnalysis *AIAnalysis `json:"ai_analysis,omitempty"`

	Saved bool `json:"saved"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AIAnalysis is the structured scoring narrative attached to a found job
type AIAnalysis struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Gaps            []string `json:"gaps"`
	Recommendations []string `json:"recommendations"`
	Reasoning       string   `json:"reasoning"`
}

// ToJSON serializes the analysis for diagnostic logging
func (a *AIAnalysis) ToJSON() (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ScoringSummary projects the posting to the compact document sent to the
// scoring prompt. The description is truncated to keep the prompt bounded.
func (j *FoundJob) ScoringSummary(maxDescription int) map[string]any {
	desc := j.DetailedDescription
	if maxDescription > 0 && len(desc) > maxDescription {
		desc = desc[:maxDescription]
	}
	return map[string]any{
		"title":       j.Title,
		"company":     j.Company,
		"location":    j.Location,
		"salary":      j.Salary,
		"work_type":   j.WorkType,
		"description": desc,
	}
}
