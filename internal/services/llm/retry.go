package llm

import (
	"strings"
	"time"
)

// RetryConfig defines retry behavior for provider calls. Scoring calls get
// one retry on transient failures with a short fixed delay; the batch-level
// caller owns pacing beyond that.
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
}

// NewDefaultRetryConfig returns the retry policy for scoring calls
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 1,
		Delay:      2 * time.Second,
	}
}

// IsRetryableStatus reports whether an HTTP status warrants a retry
func IsRetryableStatus(status int) bool {
	return status == 429 || status >= 500
}

// IsRateLimitError checks if an error looks like a provider rate limit.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota")
}
