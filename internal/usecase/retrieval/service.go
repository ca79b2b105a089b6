// Package retrieval embeds a query and finds the most similar articles
// in the selected backend.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/metrics"
)

// DefaultLimit is the number of articles returned when the caller does
// not ask for a specific count.
const DefaultLimit = 5

// Result carries the retrieved articles plus the embedding usage that
// produced them.
type Result struct {
	Articles        []domain.Article
	EmbeddingTokens int
}

// Service retrieves articles by semantic similarity.
type Service struct {
	stores StoreResolver
	embed  Embedder
}

// New creates a retrieval service.
func New(stores StoreResolver, embed Embedder) *Service {
	return &Service{stores: stores, embed: embed}
}

// Search embeds the query and runs a vector search against the chosen
// backend. The backend is resolved before any I/O so an unknown name
// fails fast with domain.ErrInvalidBackend.
func (s *Service) Search(ctx context.Context, backend domain.Backend, query string, limit int) (Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	st, err := s.stores.Get(backend)
	if err != nil {
		return Result{}, err
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("vectorize query: %w", err)
	}

	start := time.Now()
	articles, err := st.SearchArticles(ctx, embResult.Embedding, limit)
	if err != nil {
		status := "error"
		if errors.Is(err, domain.ErrNoMatches) {
			status = "no_matches"
		}
		metrics.RetrievalRequestsTotal.WithLabelValues(string(backend), status).Inc()
		return Result{}, fmt.Errorf("search articles: %w", err)
	}

	metrics.RetrievalRequestsTotal.WithLabelValues(string(backend), "success").Inc()
	metrics.RetrievalRequestDuration.WithLabelValues(string(backend)).Observe(time.Since(start).Seconds())

	return Result{Articles: articles, EmbeddingTokens: embResult.TotalTokens}, nil
}
