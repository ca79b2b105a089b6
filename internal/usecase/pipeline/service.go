// Package pipeline answers questions over the news corpus: retrieve
// similar articles, render them into a prompt, generate with the LLM.
//
// Answer and AnswerDirect never return an error. Every failure is
// folded into the AnswerResult so one bad question can never abort a
// batch or leak a stack trace to the caller.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/logger"
)

// Run names recorded on traces.
const (
	runNameAnswer = "answer_question"
	runNameDirect = "answer_question_direct"
)

// Service orchestrates the retrieve-then-generate pipeline.
type Service struct {
	retriever   Retriever
	generator   Generator
	tracer      Tracer
	maxArticles int
}

// New creates a pipeline service. maxArticles bounds how many
// retrieved articles feed the prompt.
func New(retriever Retriever, generator Generator, tracer Tracer, maxArticles int) *Service {
	if maxArticles <= 0 {
		maxArticles = 5
	}
	if tracer == nil {
		tracer = NopTracer{}
	}
	return &Service{
		retriever:   retriever,
		generator:   generator,
		tracer:      tracer,
		maxArticles: maxArticles,
	}
}

// Answer runs the full pipeline for one question against the chosen
// backend.
func (s *Service) Answer(ctx context.Context, question string, backend domain.Backend) domain.AnswerResult {
	res, err := s.retriever.Search(ctx, backend, question, s.maxArticles)
	if err != nil {
		if errors.Is(err, domain.ErrNoMatches) {
			return domain.AnswerResult{
				Question: question,
				Answer:   noMatchesAnswer,
				Context:  []domain.ContextSnippet{},
			}
		}
		return s.fail(ctx, question, err)
	}

	prompt := ragPrompt(question, res.Articles)
	gen, err := s.generate(ctx, runNameAnswer, question, backend, prompt)
	if err != nil {
		return s.fail(ctx, question, err)
	}

	snippets := make([]domain.ContextSnippet, 0, len(res.Articles))
	for _, a := range res.Articles {
		snippets = append(snippets, a.ToSnippet())
	}

	return domain.AnswerResult{
		Question:     question,
		Answer:       gen.Content,
		ArticlesUsed: len(res.Articles),
		Context:      snippets,
	}
}

// AnswerDirect skips retrieval and asks the LLM directly.
func (s *Service) AnswerDirect(ctx context.Context, question string) domain.AnswerResult {
	gen, err := s.generate(ctx, runNameDirect, question, "", directPrompt(question))
	if err != nil {
		return s.fail(ctx, question, err)
	}
	return domain.AnswerResult{
		Question: question,
		Answer:   gen.Content,
		Context:  []domain.ContextSnippet{},
	}
}

// generate calls the LLM inside trace observation. The run id is
// captured before the call so concurrent runs never mix up traces.
func (s *Service) generate(ctx context.Context, runName, question string, backend domain.Backend, prompt string) (domain.Generation, error) {
	inputs, _ := json.Marshal(map[string]string{"question": question}) //nolint:errcheck

	var metadata map[string]string
	if backend != "" {
		metadata = map[string]string{"backend": string(backend)}
	}

	runID := s.tracer.OnStart(runName, string(inputs), []string{"newsrag"}, metadata)

	gen, err := s.generator.Generate(ctx, prompt)

	var outputs []byte
	if err == nil {
		outputs, _ = json.Marshal(map[string]string{"answer": gen.Content}) //nolint:errcheck
	}
	s.tracer.OnEnd(runID, string(outputs), gen, err)

	return gen, err
}

// fail folds an error into a caller-visible result.
func (s *Service) fail(ctx context.Context, question string, err error) domain.AnswerResult {
	logger.FromContext(ctx).Error("Answer pipeline failed",
		zap.String("question", question),
		zap.Error(err),
	)
	return domain.AnswerResult{
		Question: question,
		Answer:   "Error: " + err.Error(),
		Context:  []domain.ContextSnippet{},
		Error:    err.Error(),
	}
}
