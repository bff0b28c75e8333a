package llm

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ternarybob/scout/internal/models"
)

// maxRawReasoning bounds the raw model text carried into a default result
const maxRawReasoning = 500

// rawAnalysis mirrors AnalysisResult with a loosely typed score so numeric
// strings and floats survive decoding
type rawAnalysis struct {
	MatchingScore   any      `json:"matching_score"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Gaps            []string `json:"gaps"`
	Recommendations []string `json:"recommendations"`
	Reasoning       string   `json:"reasoning"`

	// Some providers nest the narrative under an ai_analysis key
	Nested *rawAnalysis `json:"ai_analysis"`
}

// ParseAnalysisResult extracts a well-formed AnalysisResult from arbitrary
// model output. Provider output is adversarial by accident: prose prefaces,
// code fences, schema drift, string-typed scores. The ladder is:
//
//  1. direct JSON parse of the body
//  2. strip a ```json code fence and re-parse
//  3. brace-match the outermost {...} span and parse that
//  4. give up and return DefaultResult with the raw text in Reasoning
//
// The returned result is always non-nil with MatchingScore in [0,100].
// This function never fails; the boolean reports whether real JSON was found.
func ParseAnalysisResult(text string) (*models.AnalysisResult, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return DefaultResult(""), false
	}

	if result, ok := tryParse(trimmed); ok {
		return result, true
	}

	if stripped, ok := stripCodeFence(trimmed); ok {
		if result, ok := tryParse(stripped); ok {
			return result, true
		}
	}

	if span, ok := outermostBraceSpan(trimmed); ok {
		if result, ok := tryParse(span); ok {
			return result, true
		}
	}

	return DefaultResult(trimmed), false
}

// DefaultResult builds the zero-score fallback carrying the raw model text
func DefaultResult(raw string) *models.AnalysisResult {
	if len(raw) > maxRawReasoning {
		raw = raw[:maxRawReasoning]
	}
	return &models.AnalysisResult{
		MatchingScore:   0,
		Summary:         "analysis unavailable",
		Strengths:       []string{},
		Gaps:            []string{},
		Recommendations: []string{},
		Reasoning:       raw,
	}
}

func tryParse(text string) (*models.AnalysisResult, bool) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}

	// Unwrap a nested ai_analysis payload, keeping a top-level score if the
	// nested block lacks one
	if raw.Nested != nil {
		nested := *raw.Nested
		if nested.MatchingScore == nil {
			nested.MatchingScore = raw.MatchingScore
		}
		raw = nested
	}

	score, ok := coerceScore(raw.MatchingScore)
	if !ok && raw.Summary == "" && raw.Reasoning == "" {
		// A JSON document with none of our keys is not a result
		return nil, false
	}

	result := &models.AnalysisResult{
		MatchingScore:   models.ClampScore(score),
		Summary:         raw.Summary,
		Strengths:       raw.Strengths,
		Gaps:            raw.Gaps,
		Recommendations: raw.Recommendations,
		Reasoning:       raw.Reasoning,
	}
	if result.Strengths == nil {
		result.Strengths = []string{}
	}
	if result.Gaps == nil {
		result.Gaps = []string{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}
	return result, true
}

// coerceScore accepts integers, floats and numeric strings
func coerceScore(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return int(math.Round(val)), true
	case string:
		cleaned := strings.TrimSpace(val)
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return int(math.Round(f)), true
		}
		return 0, false
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return int(math.Round(f)), true
		}
		return 0, false
	}
	return 0, false
}

// stripCodeFence removes a leading ```json (or bare ```) fence and its
// closing fence
func stripCodeFence(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}

	body := text[start+3:]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		// Drop the fence language tag line ("json", "JSON", or empty)
		tag := strings.TrimSpace(body[:newline])
		if tag == "" || strings.EqualFold(tag, "json") {
			body = body[newline+1:]
		}
	}

	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return "", false
	}
	return body, true
}

// outermostBraceSpan extracts the first balanced {...} span, respecting
// string literals and escapes
func outermostBraceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}

	return "", false
}
