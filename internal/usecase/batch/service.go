// Package batch fans one list of questions out over a bounded worker
// pool while keeping the output order equal to the input order.
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/logger"
	"github.com/kailas-cloud/newsrag/internal/metrics"
)

// MaxWorkers caps the fan-out of a single batch.
const MaxWorkers = 10

// progressEvery controls how often batch progress is logged.
const progressEvery = 20

// Answerer answers one question. It never returns an error; failures
// are folded into the result.
type Answerer interface {
	Answer(ctx context.Context, question string, backend domain.Backend) domain.AnswerResult
}

// Service runs question batches with bounded concurrency.
type Service struct {
	answerer Answerer
}

// New creates a batch service.
func New(answerer Answerer) *Service {
	return &Service{answerer: answerer}
}

// Run answers every question concurrently with at most workers in
// flight. results[i] always corresponds to questions[i]. The only
// errors returned are orchestration errors (bad worker count, empty
// batch); per-question failures land in their result slot.
//
// Cancelling ctx stops dispatching new questions. Slots that never
// dispatched are filled with the cancellation error; in-flight
// questions finish through their own ctx handling.
func (s *Service) Run(ctx context.Context, questions []string, workers int, backend domain.Backend) ([]domain.AnswerResult, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("batch needs at least one question: %w", domain.ErrBatchOrchestration)
	}
	if workers < 1 || workers > MaxWorkers {
		return nil, fmt.Errorf("workers must be between 1 and %d, got %d: %w",
			MaxWorkers, workers, domain.ErrBatchOrchestration)
	}

	log := logger.FromContext(ctx)
	log.Info("Starting batch run",
		zap.Int("questions", len(questions)),
		zap.Int("workers", workers),
		zap.String("backend", string(backend)),
	)

	results := make([]domain.AnswerResult, len(questions))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var completed atomic.Int64

	for i, q := range questions {
		// Checked before the select: with both a free semaphore slot
		// and a done context the select picks randomly, which would
		// let a few extra questions dispatch after cancellation.
		if err := ctx.Err(); err != nil {
			fillCancelled(results, questions, i, err)
			wg.Wait()
			return results, nil
		}
		select {
		case <-ctx.Done():
			fillCancelled(results, questions, i, ctx.Err())
			wg.Wait()
			return results, nil
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			defer func() { <-sem }()

			metrics.BatchInFlight.Inc()
			defer metrics.BatchInFlight.Dec()

			results[i] = s.answerer.Answer(ctx, q, backend)

			if n := completed.Add(1); n%progressEvery == 0 {
				log.Info("Batch progress",
					zap.Int64("completed", n),
					zap.Int("total", len(questions)),
				)
			}
		}(i, q)
	}

	wg.Wait()
	log.Info("Batch run finished", zap.Int("questions", len(questions)))
	return results, nil
}

// fillCancelled marks every slot from index from as never dispatched.
func fillCancelled(results []domain.AnswerResult, questions []string, from int, err error) {
	for j := from; j < len(questions); j++ {
		results[j] = domain.AnswerResult{
			Question: questions[j],
			Answer:   "Error: " + err.Error(),
			Context:  []domain.ContextSnippet{},
			Error:    err.Error(),
		}
	}
}
