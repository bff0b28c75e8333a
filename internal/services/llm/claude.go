package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

// claudeScorer scores through the Anthropic API
type claudeScorer struct {
	config common.ProviderConfig
	client anthropic.Client
	retry  *RetryConfig
	logger arbor.ILogger
}

func newClaudeScorer(config common.ProviderConfig, logger arbor.ILogger) *claudeScorer {
	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	return &claudeScorer{
		config: config,
		client: client,
		retry:  NewDefaultRetryConfig(),
		logger: logger,
	}
}

func (s *claudeScorer) ProviderKey() string {
	return "claude"
}

func (s *claudeScorer) ScoreResume(ctx context.Context, resumeSummary, jobSummary map[string]any) (*models.AnalysisResult, error) {
	resumeJSON, err := json.Marshal(resumeSummary)
	if err != nil {
		return DefaultResult(err.Error()), fmt.Errorf("marshal resume summary: %w", err)
	}
	jobJSON, err := json.Marshal(jobSummary)
	if err != nil {
		return DefaultResult(err.Error()), fmt.Errorf("marshal job summary: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(s.config.Model),
		MaxTokens:   2000,
		Temperature: anthropic.Float(float64(s.config.Temperature)),
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(
				RenderMatchingPrompt(string(resumeJSON), string(jobJSON), true),
			)),
		},
	}

	var resp *anthropic.Message
	var apiErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn().
				Int("attempt", attempt+1).
				Err(apiErr).
				Msg("Retrying Claude API call")

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
		resp, apiErr = s.client.Messages.New(callCtx, params)
		cancel()
		if apiErr == nil {
			break
		}
	}

	if apiErr != nil {
		err := fmt.Errorf("%w: claude: %v", interfaces.ErrUpstreamLLM, apiErr)
		return DefaultResult(apiErr.Error()), err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		err := fmt.Errorf("%w: claude: empty response", interfaces.ErrUpstreamLLM)
		return DefaultResult("empty response"), err
	}

	result, _ := ParseAnalysisResult(text.String())
	return result, nil
}
