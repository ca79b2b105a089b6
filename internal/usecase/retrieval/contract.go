package retrieval

import (
	"context"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/store"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// StoreResolver maps a backend name to its article store.
type StoreResolver interface {
	Get(backend domain.Backend) (store.ArticleStore, error)
}
