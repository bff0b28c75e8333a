package interfaces

import (
	"context"

	"github.com/ternarybob/scout/internal/models"
)

// Scorer scores a resume summary against a job summary with an external
// language model. Implementations must never return a malformed result: any
// provider failure or unparseable response yields a default AnalysisResult
// with MatchingScore 0 and the failure captured in Reasoning, alongside the
// error for the caller's counters.
type Scorer interface {
	// ScoreResume returns the structured analysis for one posting. The
	// returned result is always non-nil and has MatchingScore in [0,100].
	ScoreResume(ctx context.Context, resumeSummary, jobSummary map[string]any) (*models.AnalysisResult, error)

	// ProviderKey identifies the provider behind this scorer (openai,
	// deepseek, google, azure_openai, ollama, claude)
	ProviderKey() string
}

// ScorerFactory builds a Scorer for a provider key from configuration
type ScorerFactory interface {
	ScorerFor(provider string) (Scorer, error)
}
