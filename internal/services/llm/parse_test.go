package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisResult_DirectJSON(t *testing.T) {
	text := `{"matching_score": 87, "summary": "Strong match.", "strengths": ["Go"], "gaps": ["Kubernetes"], "recommendations": ["Highlight backend work"], "reasoning": "Skills align well."}`

	result, ok := ParseAnalysisResult(text)
	require.True(t, ok)
	assert.Equal(t, 87, result.MatchingScore)
	assert.Equal(t, "Strong match.", result.Summary)
	assert.Equal(t, []string{"Go"}, result.Strengths)
	assert.Equal(t, []string{"Kubernetes"}, result.Gaps)
}

func TestParseAnalysisResult_CodeFence(t *testing.T) {
	text := "```json\n{\"matching_score\": 72, \"summary\": \"Decent fit.\"}\n```"

	result, ok := ParseAnalysisResult(text)
	require.True(t, ok)
	assert.Equal(t, 72, result.MatchingScore)
	assert.Equal(t, "Decent fit.", result.Summary)
}

func TestParseAnalysisResult_ProseWrapped(t *testing.T) {
	text := `Sure! Here is my assessment of the candidate:

{"matching_score": 55, "summary": "Moderate match.", "reasoning": "Some gaps."}

Let me know if you need anything else.`

	result, ok := ParseAnalysisResult(text)
	require.True(t, ok)
	assert.Equal(t, 55, result.MatchingScore)
	assert.Equal(t, "Moderate match.", result.Summary)
}

func TestParseAnalysisResult_BracesInsideStrings(t *testing.T) {
	text := `noise {"matching_score": 40, "summary": "Uses {braces} and \"quotes\" in text.", "reasoning": "ok"} trailing`

	result, ok := ParseAnalysisResult(text)
	require.True(t, ok)
	assert.Equal(t, 40, result.MatchingScore)
	assert.Contains(t, result.Summary, "{braces}")
}

func TestParseAnalysisResult_GarbageFallsBackToDefault(t *testing.T) {
	result, ok := ParseAnalysisResult("not even close to JSON")
	require.False(t, ok)
	assert.Equal(t, 0, result.MatchingScore)
	assert.Equal(t, "analysis unavailable", result.Summary)
	assert.Equal(t, "not even close to JSON", result.Reasoning)
	assert.NotNil(t, result.Strengths)
	assert.NotNil(t, result.Gaps)
	assert.NotNil(t, result.Recommendations)
}

func TestParseAnalysisResult_DefaultTruncatesRawText(t *testing.T) {
	long := strings.Repeat("x", 2000)
	result, ok := ParseAnalysisResult(long)
	require.False(t, ok)
	assert.Len(t, result.Reasoning, maxRawReasoning)
}

func TestParseAnalysisResult_StringScore(t *testing.T) {
	result, ok := ParseAnalysisResult(`{"matching_score": "95", "summary": "Excellent."}`)
	require.True(t, ok)
	assert.Equal(t, 95, result.MatchingScore)
}

func TestParseAnalysisResult_FloatScoreRounds(t *testing.T) {
	result, ok := ParseAnalysisResult(`{"matching_score": 66.6, "summary": "ok"}`)
	require.True(t, ok)
	assert.Equal(t, 67, result.MatchingScore)
}

func TestParseAnalysisResult_ScoreClampedToRange(t *testing.T) {
	result, ok := ParseAnalysisResult(`{"matching_score": 150, "summary": "overenthusiastic"}`)
	require.True(t, ok)
	assert.Equal(t, 100, result.MatchingScore)

	result, ok = ParseAnalysisResult(`{"matching_score": -5, "summary": "harsh"}`)
	require.True(t, ok)
	assert.Equal(t, 0, result.MatchingScore)
}

func TestParseAnalysisResult_NestedAnalysisUnwrapped(t *testing.T) {
	text := `{"ai_analysis": {"matching_score": 81, "summary": "Nested payload."}}`

	result, ok := ParseAnalysisResult(text)
	require.True(t, ok)
	assert.Equal(t, 81, result.MatchingScore)
	assert.Equal(t, "Nested payload.", result.Summary)
}

func TestParseAnalysisResult_NestedWithTopLevelScore(t *testing.T) {
	text := `{"matching_score": 63, "ai_analysis": {"summary": "Score lives outside."}}`

	result, ok := ParseAnalysisResult(text)
	require.True(t, ok)
	assert.Equal(t, 63, result.MatchingScore)
	assert.Equal(t, "Score lives outside.", result.Summary)
}

func TestParseAnalysisResult_UnrelatedJSONRejected(t *testing.T) {
	// Valid JSON without any of our keys is not a result
	result, ok := ParseAnalysisResult(`{"error": "rate limited", "code": 429}`)
	require.False(t, ok)
	assert.Equal(t, 0, result.MatchingScore)
	assert.Equal(t, "analysis unavailable", result.Summary)
}

func TestParseAnalysisResult_EmptyInput(t *testing.T) {
	result, ok := ParseAnalysisResult("   ")
	require.False(t, ok)
	assert.Equal(t, 0, result.MatchingScore)
	assert.Empty(t, result.Reasoning)
}
