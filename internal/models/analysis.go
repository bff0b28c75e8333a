package models

// AnalysisResult is the six-field structured output of a single scoring call
type AnalysisResult struct {
	MatchingScore   int      `json:"matching_score"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Gaps            []string `json:"gaps"`
	Recommendations []string `json:"recommendations"`
	Reasoning       string   `json:"reasoning"`
}

// Analysis converts the result to the narrative stored on a found job
func (r *AnalysisResult) Analysis() *AIAnalysis {
	return &AIAnalysis{
		Summary:         r.Summary,
		Strengths:       r.Strengths,
		Gaps:            r.Gaps,
		Recommendations: r.Recommendations,
		Reasoning:       r.Reasoning,
	}
}

// ClampScore coerces a score into the valid [0,100] range
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
