package health

import (
	"context"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/store"
)

// StoreLister enumerates configured backends and resolves their stores.
type StoreLister interface {
	Backends() []domain.Backend
	Get(backend domain.Backend) (store.ArticleStore, error)
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CacheChecker checks embedding cache connectivity.
type CacheChecker interface {
	Ping(ctx context.Context) error
}
