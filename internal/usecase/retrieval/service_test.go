package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/store"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	texts  []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.texts = append(m.texts, text)
	return m.result, m.err
}

type mockStore struct {
	articles  []domain.Article
	err       error
	lastLimit int
	lastVec   []float32
}

func (m *mockStore) SearchArticles(_ context.Context, vector []float32, limit int) ([]domain.Article, error) {
	m.lastVec = vector
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.articles, nil
}

func (m *mockStore) Ping(_ context.Context) error { return nil }
func (m *mockStore) Close()                       {}

func newTestService(t *testing.T, ms *mockStore, me *mockEmbedder) *Service {
	t.Helper()
	reg := store.NewRegistry()
	reg.Register(domain.BackendClickHouse, ms)
	return New(reg, me)
}

func TestSearch_DefaultLimit(t *testing.T) {
	ms := &mockStore{articles: []domain.Article{{URL: "https://example.org/a"}}}
	me := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 7}}
	svc := newTestService(t, ms, me)

	res, err := svc.Search(context.Background(), domain.BackendClickHouse, "budget cuts", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.lastLimit != DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultLimit, ms.lastLimit)
	}
	if len(res.Articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(res.Articles))
	}
	if res.EmbeddingTokens != 7 {
		t.Fatalf("expected embedding usage to be forwarded, got %d", res.EmbeddingTokens)
	}
	if ms.lastVec[0] != 0.1 {
		t.Fatalf("expected the query embedding to reach the store, got %v", ms.lastVec)
	}
}

func TestSearch_UnknownBackendFailsBeforeEmbedding(t *testing.T) {
	ms := &mockStore{}
	me := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	svc := newTestService(t, ms, me)

	_, err := svc.Search(context.Background(), domain.BackendPostgres, "q", 3)
	if !errors.Is(err, domain.ErrInvalidBackend) {
		t.Fatalf("expected ErrInvalidBackend, got %v", err)
	}
	if len(me.texts) != 0 {
		t.Fatal("embedder must not be called when the backend cannot be resolved")
	}
}

func TestSearch_EmbedderErrorPropagates(t *testing.T) {
	ms := &mockStore{}
	me := &mockEmbedder{err: errors.New("provider down")}
	svc := newTestService(t, ms, me)

	_, err := svc.Search(context.Background(), domain.BackendClickHouse, "q", 3)
	if err == nil {
		t.Fatal("expected error from embedder")
	}
	if ms.lastVec != nil {
		t.Fatal("store must not be queried when embedding fails")
	}
}

func TestSearch_NoMatches(t *testing.T) {
	ms := &mockStore{err: domain.ErrNoMatches}
	me := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	svc := newTestService(t, ms, me)

	_, err := svc.Search(context.Background(), domain.BackendClickHouse, "q", 3)
	if !errors.Is(err, domain.ErrNoMatches) {
		t.Fatalf("expected ErrNoMatches, got %v", err)
	}
}
