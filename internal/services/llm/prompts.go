package llm

import "strings"

// SystemPrompt frames the model as an HR analyst for every provider
const SystemPrompt = "You are an expert HR analyst and career consultant. You evaluate how well a candidate's resume matches a job posting and respond only in the requested format."

// matchingPromptTemplate is the shared scoring prompt. It has exactly two
// substitution slots, {resume_json} and {job_json}, which are filled by
// literal substring replacement. A format-string facility would corrupt the
// rendering because the JSON payloads themselves contain braces.
const matchingPromptTemplate = `Analyze how well this candidate's resume matches the job posting below.

CANDIDATE RESUME:
{resume_json}

JOB POSTING:
{job_json}

Evaluate the match using these weighted criteria:
- Skills alignment (40%): required and desirable skills vs the candidate's skills
- Experience relevance (30%): seniority, domain and role similarity
- Industry fit (15%): sector familiarity and transferability
- Education match (10%): degrees and certifications vs stated requirements
- Culture and location fit (5%): work type, location and soft signals

Score bands:
- 90-100: exceptional match, candidate should apply immediately
- 70-89: strong match with minor gaps
- 50-69: moderate match, some important gaps
- 30-49: weak match, significant gaps
- 0-29: poor match, fundamental misalignment

Respond with a JSON object with exactly these keys:
{
  "matching_score": <integer 0-100>,
  "summary": "<two sentence overall assessment>",
  "strengths": ["<strength>", ...],
  "gaps": ["<gap>", ...],
  "recommendations": ["<actionable recommendation>", ...],
  "reasoning": "<brief explanation of the score against the criteria>"
}`

// jsonOnlyInstruction is appended for providers without function calling
const jsonOnlyInstruction = "\n\nReturn ONLY the JSON object. No prose, no markdown fences."

// RenderMatchingPrompt fills the two substitution slots with the serialized
// summaries. Literal replacement only.
func RenderMatchingPrompt(resumeJSON, jobJSON string, jsonOnly bool) string {
	prompt := strings.ReplaceAll(matchingPromptTemplate, "{resume_json}", resumeJSON)
	prompt = strings.ReplaceAll(prompt, "{job_json}", jobJSON)
	if jsonOnly {
		prompt += jsonOnlyInstruction
	}
	return prompt
}

// AnalysisFunctionName is the tool name requested from function-calling providers
const AnalysisFunctionName = "analyze_resume_job_match"

// AnalysisFunctionSchema describes the structured tool output for providers
// that support function calling (OpenAI, Azure OpenAI)
func AnalysisFunctionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"matching_score": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     100,
				"description": "Overall match score between 0 and 100",
			},
			"summary": map[string]any{
				"type":        "string",
				"description": "Two sentence overall assessment",
			},
			"strengths": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"gaps": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"recommendations": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Brief explanation of the score",
			},
		},
		"required": []string{"matching_score", "summary", "strengths", "gaps", "recommendations", "reasoning"},
	}
}
