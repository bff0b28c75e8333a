package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

// azureAPIVersion pins the Azure OpenAI chat completions API version
const azureAPIVersion = "2024-06-01"

// chatMessage is one turn in a chat completions request
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the OpenAI-compatible chat completions payload
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  any           `json:"tool_choice,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// openAICompatScorer scores over any OpenAI-compatible chat completions
// endpoint: OpenAI, DeepSeek, Azure OpenAI and Ollama all speak this wire
// format. Providers with function calling get a structured tool call first;
// everything else gets a JSON-only prompt and the parsing ladder.
type openAICompatScorer struct {
	providerKey string
	config      common.ProviderConfig
	client      *resty.Client
	retry       *RetryConfig
	logger      arbor.ILogger
}

func newOpenAICompatScorer(providerKey string, config common.ProviderConfig, logger arbor.ILogger) *openAICompatScorer {
	client := resty.New().
		SetTimeout(config.CallTimeout()).
		SetHeader("Content-Type", "application/json")

	if providerKey == "azure_openai" {
		client.SetHeader("api-key", config.APIKey)
	} else if config.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+config.APIKey)
	}

	return &openAICompatScorer{
		providerKey: providerKey,
		config:      config,
		client:      client,
		retry:       NewDefaultRetryConfig(),
		logger:      logger,
	}
}

func (s *openAICompatScorer) ProviderKey() string {
	return s.providerKey
}

func (s *openAICompatScorer) endpoint() string {
	base := strings.TrimRight(s.config.BaseURL, "/")
	if s.providerKey == "azure_openai" {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", base, s.config.Model, azureAPIVersion)
	}
	return base + "/chat/completions"
}

// ScoreResume runs the scoring call. The returned result is always non-nil;
// transport failures after retry yield the default result plus the error.
func (s *openAICompatScorer) ScoreResume(ctx context.Context, resumeSummary, jobSummary map[string]any) (*models.AnalysisResult, error) {
	resumeJSON, err := json.Marshal(resumeSummary)
	if err != nil {
		return DefaultResult(err.Error()), fmt.Errorf("marshal resume summary: %w", err)
	}
	jobJSON, err := json.Marshal(jobSummary)
	if err != nil {
		return DefaultResult(err.Error()), fmt.Errorf("marshal job summary: %w", err)
	}

	if s.config.SupportsFunctionCalls {
		if result, err := s.scoreWithFunctionCall(ctx, string(resumeJSON), string(jobJSON)); err == nil {
			return result, nil
		} else {
			s.logger.Warn().
				Str("provider", s.providerKey).
				Err(err).
				Msg("Function call scoring failed, falling back to JSON mode")
		}
	}

	return s.scoreWithJSONMode(ctx, string(resumeJSON), string(jobJSON))
}

func (s *openAICompatScorer) scoreWithFunctionCall(ctx context.Context, resumeJSON, jobJSON string) (*models.AnalysisResult, error) {
	req := &chatRequest{
		Model: s.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: RenderMatchingPrompt(resumeJSON, jobJSON, false)},
		},
		Temperature: s.config.Temperature,
		MaxTokens:   2000,
		Tools: []chatTool{{
			Type: "function",
			Function: chatFunction{
				Name:        AnalysisFunctionName,
				Description: "Record the structured resume-to-job match analysis",
				Parameters:  AnalysisFunctionSchema(),
			},
		}},
		ToolChoice: map[string]any{
			"type":     "function",
			"function": map[string]string{"name": AnalysisFunctionName},
		},
	}

	resp, err := s.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("no tool call in response")
	}

	args := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	result, ok := ParseAnalysisResult(args)
	if !ok {
		return nil, fmt.Errorf("unparseable tool call arguments")
	}
	return result, nil
}

func (s *openAICompatScorer) scoreWithJSONMode(ctx context.Context, resumeJSON, jobJSON string) (*models.AnalysisResult, error) {
	req := &chatRequest{
		Model: s.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: RenderMatchingPrompt(resumeJSON, jobJSON, true)},
		},
		Temperature: s.config.Temperature,
		MaxTokens:   2000,
	}

	resp, err := s.send(ctx, req)
	if err != nil {
		return DefaultResult(err.Error()), fmt.Errorf("%w: %s: %v", interfaces.ErrUpstreamLLM, s.providerKey, err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%w: %s: empty response", interfaces.ErrUpstreamLLM, s.providerKey)
		return DefaultResult("empty response"), err
	}

	// The ladder never fails; an unparseable body becomes the default result
	// with the raw text preserved in Reasoning
	result, _ := ParseAnalysisResult(resp.Choices[0].Message.Content)
	return result, nil
}

// send posts the request with one retry on 429/5xx
func (s *openAICompatScorer) send(ctx context.Context, req *chatRequest) (*chatResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn().
				Str("provider", s.providerKey).
				Int("attempt", attempt+1).
				Err(lastErr).
				Msg("Retrying provider call")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retry.Delay):
			}
		}

		var parsed chatResponse
		resp, err := s.client.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&parsed).
			SetError(&parsed).
			Post(s.endpoint())
		if err != nil {
			lastErr = err
			continue
		}

		if IsRetryableStatus(resp.StatusCode()) {
			lastErr = fmt.Errorf("provider returned HTTP %d", resp.StatusCode())
			continue
		}

		if resp.IsError() {
			if parsed.Error != nil {
				return nil, fmt.Errorf("provider error (HTTP %d): %s", resp.StatusCode(), parsed.Error.Message)
			}
			return nil, fmt.Errorf("provider error: HTTP %d", resp.StatusCode())
		}

		return &parsed, nil
	}

	return nil, lastErr
}
