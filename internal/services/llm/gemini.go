package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
	"google.golang.org/genai"
)

// geminiScorer scores through the Google Gemini API. The response schema is
// enforced server-side via structured output, so the parsing ladder almost
// always succeeds on the first rung.
type geminiScorer struct {
	config common.ProviderConfig
	client *genai.Client
	retry  *RetryConfig
	logger arbor.ILogger
}

func newGeminiScorer(ctx context.Context, config common.ProviderConfig, logger arbor.ILogger) (*geminiScorer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiScorer{
		config: config,
		client: client,
		retry:  NewDefaultRetryConfig(),
		logger: logger,
	}, nil
}

func (s *geminiScorer) ProviderKey() string {
	return "google"
}

func (s *geminiScorer) ScoreResume(ctx context.Context, resumeSummary, jobSummary map[string]any) (*models.AnalysisResult, error) {
	resumeJSON, err := json.Marshal(resumeSummary)
	if err != nil {
		return DefaultResult(err.Error()), fmt.Errorf("marshal resume summary: %w", err)
	}
	jobJSON, err := json.Marshal(jobSummary)
	if err != nil {
		return DefaultResult(err.Error()), fmt.Errorf("marshal job summary: %w", err)
	}

	prompt := RenderMatchingPrompt(string(resumeJSON), string(jobJSON), false)

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(s.config.Temperature),
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    analysisGenaiSchema(),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	var resp *genai.GenerateContentResponse
	var apiErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn().
				Int("attempt", attempt+1).
				Err(apiErr).
				Msg("Retrying Gemini API call")

			// Rate-limited calls back off longer before the retry
			delay := s.retry.Delay
			if IsRateLimitError(apiErr) {
				delay *= 2
			}

			select {
			case <-ctx.Done():
				return DefaultResult(ctx.Err().Error()), ctx.Err()
			case <-time.After(delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout())
		resp, apiErr = s.client.Models.GenerateContent(callCtx, s.config.Model, contents, config)
		cancel()
		if apiErr == nil {
			break
		}
	}

	if apiErr != nil {
		err := fmt.Errorf("%w: google: %v", interfaces.ErrUpstreamLLM, apiErr)
		return DefaultResult(apiErr.Error()), err
	}

	if resp == nil || len(resp.Candidates) == 0 {
		err := fmt.Errorf("%w: google: empty response", interfaces.ErrUpstreamLLM)
		return DefaultResult("empty response"), err
	}

	result, _ := ParseAnalysisResult(resp.Text())
	return result, nil
}

// analysisGenaiSchema mirrors AnalysisFunctionSchema in genai's schema type
func analysisGenaiSchema() *genai.Schema {
	stringArray := &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"matching_score":  {Type: genai.TypeInteger, Minimum: genai.Ptr(0.0), Maximum: genai.Ptr(100.0)},
			"summary":         {Type: genai.TypeString},
			"strengths":       stringArray,
			"gaps":            stringArray,
			"recommendations": stringArray,
			"reasoning":       {Type: genai.TypeString},
		},
		Required: []string{"matching_score", "summary", "strengths", "gaps", "recommendations", "reasoning"},
	}
}
