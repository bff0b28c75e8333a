package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
)

// Provider keys accepted by the factory
const (
	ProviderOpenAI      = "openai"
	ProviderDeepSeek    = "deepseek"
	ProviderGoogle      = "google"
	ProviderAzureOpenAI = "azure_openai"
	ProviderOllama      = "ollama"
	ProviderClaude      = "claude"
)

// ScorerFactory builds and caches one Scorer per provider key. Scorers are
// stateless beyond their HTTP client, so a single instance serves all
// concurrent matcher batches.
type ScorerFactory struct {
	config *common.LLMConfig
	logger arbor.ILogger

	mu      sync.Mutex
	scorers map[string]interfaces.Scorer
}

// NewScorerFactory creates a new scorer factory
func NewScorerFactory(config *common.LLMConfig, logger arbor.ILogger) *ScorerFactory {
	return &ScorerFactory{
		config:  config,
		logger:  logger,
		scorers: make(map[string]interfaces.Scorer),
	}
}

// ScorerFor returns the scorer for a provider key, creating it on first use
func (f *ScorerFactory) ScorerFor(provider string) (interfaces.Scorer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if scorer, ok := f.scorers[provider]; ok {
		return scorer, nil
	}

	providerConfig, err := f.config.Provider(provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}

	var scorer interfaces.Scorer
	switch provider {
	case ProviderOpenAI, ProviderDeepSeek, ProviderAzureOpenAI, ProviderOllama:
		scorer = newOpenAICompatScorer(provider, providerConfig, f.logger)
	case ProviderGoogle:
		scorer, err = newGeminiScorer(context.Background(), providerConfig, f.logger)
		if err != nil {
			return nil, err
		}
	case ProviderClaude:
		scorer = newClaudeScorer(providerConfig, f.logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider: %s", interfaces.ErrValidation, provider)
	}

	f.scorers[provider] = scorer

	f.logger.Debug().
		Str("provider", provider).
		Str("model", providerConfig.Model).
		Msg("Created scorer")

	return scorer, nil
}
