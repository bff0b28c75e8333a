package interfaces

import "errors"

// Sentinel error kinds surfaced across component boundaries. Handlers map
// them to HTTP status codes; workers map upstream failures onto them before
// finalizing a task.
var (
	// ErrNotFound - task, found job or resume does not exist for this user
	ErrNotFound = errors.New("not found")

	// ErrValidation - malformed input rejected at request time
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition - attempted illegal task status change
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentTransition - a conditional status write lost the race.
	// Callers treat this as non-fatal; the task is already terminal.
	ErrConcurrentTransition = errors.New("concurrent status transition")

	// ErrUpstreamBrowser - session-level scraper failure, fatal to the task
	ErrUpstreamBrowser = errors.New("browser session failure")

	// ErrUpstreamLLM - exhausted retries against a provider for one posting
	ErrUpstreamLLM = errors.New("llm provider failure")

	// ErrCancelled - cooperative cancellation observed
	ErrCancelled = errors.New("task cancelled")
)
