package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/newsrag/internal/domain"
)

// mockAnswerer answers with a per-question delay so order scrambling
// under concurrency is actually exercised.
type mockAnswerer struct {
	delay    func(question string) time.Duration
	answerFn func(ctx context.Context, question string) domain.AnswerResult

	mu         sync.Mutex
	inFlight   int
	maxSeen    int
	totalCalls int
}

func (m *mockAnswerer) Answer(ctx context.Context, question string, _ domain.Backend) domain.AnswerResult {
	m.mu.Lock()
	m.inFlight++
	m.totalCalls++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
	m.mu.Unlock()

	if m.delay != nil {
		time.Sleep(m.delay(question))
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()

	if m.answerFn != nil {
		return m.answerFn(ctx, question)
	}
	return domain.AnswerResult{Question: question, Answer: "answer to " + question}
}

func questions(n int) []string {
	qs := make([]string, n)
	for i := range qs {
		qs[i] = fmt.Sprintf("question %d", i)
	}
	return qs
}

func TestRun_PreservesOrderUnderConcurrency(t *testing.T) {
	// Earlier questions sleep longer, so completion order is roughly
	// the reverse of submission order.
	ma := &mockAnswerer{delay: func(q string) time.Duration {
		var i int
		fmt.Sscanf(q, "question %d", &i) //nolint:errcheck
		return time.Duration(20-i) * time.Millisecond
	}}
	svc := New(ma)

	qs := questions(20)
	results, err := svc.Run(context.Background(), qs, 8, domain.BackendClickHouse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(qs) {
		t.Fatalf("expected %d results, got %d", len(qs), len(results))
	}
	for i, r := range results {
		if r.Question != qs[i] {
			t.Fatalf("order broken at %d: got %q, want %q", i, r.Question, qs[i])
		}
	}
}

func TestRun_FansOutAcrossWorkers(t *testing.T) {
	// 10 questions at 50ms each through 2 workers must run genuinely
	// in parallel: two in flight at once and a wall time near the
	// 5x50ms parallel schedule, nowhere near the 10x50ms serial one.
	const delay = 50 * time.Millisecond
	ma := &mockAnswerer{delay: func(string) time.Duration { return delay }}
	svc := New(ma)

	start := time.Now()
	results, err := svc.Run(context.Background(), questions(10), 2, domain.BackendClickHouse)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	if ma.maxSeen < 2 {
		t.Fatalf("expected 2 questions in flight at once, saw at most %d", ma.maxSeen)
	}
	if serial := 10 * delay; elapsed >= serial {
		t.Fatalf("batch ran serially: took %v for a %v serial schedule", elapsed, serial)
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	ma := &mockAnswerer{delay: func(string) time.Duration { return 10 * time.Millisecond }}
	svc := New(ma)

	_, err := svc.Run(context.Background(), questions(30), 3, domain.BackendClickHouse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ma.maxSeen > 3 {
		t.Fatalf("concurrency cap violated: saw %d in flight", ma.maxSeen)
	}
	if ma.totalCalls != 30 {
		t.Fatalf("expected 30 calls, got %d", ma.totalCalls)
	}
}

func TestRun_WorkerRangeChecked(t *testing.T) {
	svc := New(&mockAnswerer{})

	for _, workers := range []int{0, -1, MaxWorkers + 1} {
		_, err := svc.Run(context.Background(), questions(2), workers, domain.BackendClickHouse)
		if !errors.Is(err, domain.ErrBatchOrchestration) {
			t.Fatalf("workers=%d: expected ErrBatchOrchestration, got %v", workers, err)
		}
	}
}

func TestRun_EmptyBatchRejected(t *testing.T) {
	svc := New(&mockAnswerer{})

	_, err := svc.Run(context.Background(), nil, 2, domain.BackendClickHouse)
	if !errors.Is(err, domain.ErrBatchOrchestration) {
		t.Fatalf("expected ErrBatchOrchestration, got %v", err)
	}
}

func TestRun_PerQuestionFailuresStayInSlot(t *testing.T) {
	ma := &mockAnswerer{answerFn: func(_ context.Context, q string) domain.AnswerResult {
		if q == "question 1" {
			return domain.AnswerResult{Question: q, Answer: "Error: boom", Error: "boom"}
		}
		return domain.AnswerResult{Question: q, Answer: "ok"}
	}}
	svc := New(ma)

	results, err := svc.Run(context.Background(), questions(3), 2, domain.BackendPostgres)
	if err != nil {
		t.Fatalf("per-question failures must not abort the batch: %v", err)
	}
	if results[0].Error != "" || results[2].Error != "" {
		t.Fatal("healthy slots polluted by a failing neighbor")
	}
	if results[1].Error != "boom" {
		t.Fatalf("expected failure recorded at its own index, got %+v", results[1])
	}
}

func TestRun_CancelledContextDispatchesNothing(t *testing.T) {
	// With a free semaphore slot and a done context in the same
	// select, dispatch must still stop: no question may run after
	// cancellation even when slots are available.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ma := &mockAnswerer{}
	svc := New(ma)

	results, err := svc.Run(ctx, questions(10), 4, domain.BackendClickHouse)
	if err != nil {
		t.Fatalf("cancellation is not an orchestration error: %v", err)
	}
	if ma.totalCalls != 0 {
		t.Fatalf("expected no dispatch after cancellation, got %d calls", ma.totalCalls)
	}
	for i, r := range results {
		if r.Error == "" {
			t.Fatalf("slot %d not marked with the cancellation error: %+v", i, r)
		}
	}
}

func TestRun_CancellationStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int64
	ma := &mockAnswerer{
		delay: func(string) time.Duration { return 30 * time.Millisecond },
		answerFn: func(_ context.Context, q string) domain.AnswerResult {
			calls.Add(1)
			return domain.AnswerResult{Question: q, Answer: "ok"}
		},
	}
	svc := New(ma)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	results, err := svc.Run(ctx, questions(50), 1, domain.BackendClickHouse)
	if err != nil {
		t.Fatalf("cancellation is not an orchestration error: %v", err)
	}
	if len(results) != 50 {
		t.Fatalf("expected a full result slice, got %d", len(results))
	}
	if n := calls.Load(); n == 50 {
		t.Fatal("expected dispatch to stop before finishing all questions")
	}
	// Undispatched slots carry the cancellation error in order.
	var sawCancelled bool
	for i, r := range results {
		if r.Question != fmt.Sprintf("question %d", i) {
			t.Fatalf("order broken at %d: %q", i, r.Question)
		}
		if r.Error != "" {
			sawCancelled = true
		}
	}
	if !sawCancelled {
		t.Fatal("expected undispatched slots to be marked with the cancellation error")
	}
}
