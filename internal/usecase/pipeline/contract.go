package pipeline

import (
	"context"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/usecase/retrieval"
)

// Retriever finds the articles most similar to a question.
type Retriever interface {
	Search(ctx context.Context, backend domain.Backend, query string, limit int) (retrieval.Result, error)
}

// Generator produces a completion for a fully-rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.Generation, error)
}

// Tracer observes LLM calls. OnStart returns the run id that must be
// passed back to OnEnd.
type Tracer interface {
	OnStart(name, inputs string, tags []string, metadata map[string]string) string
	OnEnd(id, outputs string, usage domain.Generation, callErr error)
}

// NopTracer discards all trace callbacks. Used when tracing is
// disabled in configuration.
type NopTracer struct{}

func (NopTracer) OnStart(_, _ string, _ []string, _ map[string]string) string { return "" }

func (NopTracer) OnEnd(_, _ string, _ domain.Generation, _ error) {}
