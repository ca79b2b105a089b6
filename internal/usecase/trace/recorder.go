// Package trace records LLM run traces out-of-band. Recording never
// blocks or fails the request that produced the trace: finalized runs
// are queued on a bounded buffer and written by a background worker.
package trace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/metrics"
)

// Store persists finalized traces.
type Store interface {
	Save(ctx context.Context, t domain.RunTrace) error
}

// Recorder tracks in-flight LLM runs and queues finalized traces for
// asynchronous persistence. Run ids are generated synchronously in
// OnStart so concurrent runs with the same name never collide. When
// the buffer is full the trace is dropped with a warning rather than
// applying backpressure to the answer path.
type Recorder struct {
	store   Store
	queue   chan domain.RunTrace
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]domain.RunTrace
	closed  bool

	done chan struct{}
}

// NewRecorder starts the background writer. bufferSize bounds the
// number of traces waiting to be written.
func NewRecorder(store Store, bufferSize int, logger *zap.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &Recorder{
		store:   store,
		queue:   make(chan domain.RunTrace, bufferSize),
		logger:  logger,
		timeout: 10 * time.Second,
		pending: make(map[string]domain.RunTrace),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// OnStart registers the beginning of a run and returns its id.
func (r *Recorder) OnStart(name, inputs string, tags []string, metadata map[string]string) string {
	t := domain.RunTrace{
		ID:        uuid.NewString(),
		Name:      name,
		Inputs:    inputs,
		Tags:      tags,
		Metadata:  metadata,
		StartTime: time.Now().UTC(),
	}

	r.mu.Lock()
	r.pending[t.ID] = t
	r.mu.Unlock()

	return t.ID
}

// OnEnd finalizes the run and queues it for persistence. Unknown ids
// are ignored.
func (r *Recorder) OnEnd(id, outputs string, usage domain.Generation, callErr error) {
	r.mu.Lock()
	t, ok := r.pending[id]
	delete(r.pending, id)
	r.mu.Unlock()
	if !ok {
		return
	}

	t.Outputs = outputs
	t.TotalTokens = usage.TotalTokens()
	t.TotalCost = usage.Cost
	t.Status = domain.RunStatusSuccess
	if callErr != nil {
		t.Status = domain.RunStatusError
		t.Error = callErr.Error()
	}
	t.Finalize(time.Now())

	r.enqueue(t)
}

func (r *Recorder) enqueue(t domain.RunTrace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- t:
	default:
		metrics.TracesDroppedTotal.Inc()
		r.logger.Warn("Trace buffer full, dropping run trace",
			zap.String("run_id", t.ID),
			zap.String("run_name", t.Name),
		)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for t := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.store.Save(ctx, t); err != nil {
			r.logger.Error("Failed to persist run trace",
				zap.String("run_id", t.ID),
				zap.String("run_name", t.Name),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Close stops accepting traces and drains the queue, waiting up to the
// deadline for in-flight writes to finish. Runs started but never
// ended are discarded.
func (r *Recorder) Close(deadline time.Duration) {
	r.mu.Lock()
	alreadyClosed := r.closed
	r.closed = true
	r.mu.Unlock()
	if !alreadyClosed {
		close(r.queue)
	}
	select {
	case <-r.done:
	case <-time.After(deadline):
		r.logger.Warn("Trace recorder shutdown deadline exceeded, some traces may be lost")
	}
}
