package domain

import "errors"

var (
	// ErrBackendUnavailable signals a connection or query failure against an
	// article store. Retryable by the caller, never retried internally.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrNoMatches signals a valid empty retrieval result. Distinct from
	// ErrBackendUnavailable: the store was reachable but holds no neighbors.
	ErrNoMatches = errors.New("no matches found")
	// ErrInvalidBackend signals an unknown database identifier, rejected at
	// the boundary before any I/O.
	ErrInvalidBackend = errors.New("invalid backend")
	// ErrGenerationFailure signals a failed or timed-out LLM call.
	ErrGenerationFailure = errors.New("generation failure")
	// ErrBatchOrchestration signals a failure in the batch fan-out/fan-in
	// machinery itself, as opposed to an individual pipeline invocation.
	ErrBatchOrchestration = errors.New("batch orchestration failure")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
