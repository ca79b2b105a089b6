// Package store defines the article storage contract shared by every
// vector-capable backend. Each backend is an independent implementation
// behind one interface — selection happens through the Registry, never
// through type hierarchies.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/newsrag/internal/domain"
)

// ArticleStore searches embedded news articles by vector similarity.
// Implementations must be safe for concurrent use: they hold a managed
// pool or session created at startup and acquire connections per call
// with guaranteed release on every exit path.
type ArticleStore interface {
	// SearchArticles returns up to limit articles ordered nearest-first.
	// A reachable store with zero neighbors returns domain.ErrNoMatches;
	// connection or query failures wrap domain.ErrBackendUnavailable.
	SearchArticles(ctx context.Context, vector []float32, limit int) ([]domain.Article, error)

	// Ping checks store connectivity.
	Ping(ctx context.Context) error

	// Close releases the pool or session.
	Close()
}

// Registry maps backend identifiers to their store implementations.
// Only configured backends are registered; resolving an unregistered or
// unknown backend fails before any I/O.
type Registry struct {
	stores map[domain.Backend]ArticleStore
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[domain.Backend]ArticleStore)}
}

// Register adds a store for a backend, replacing any previous entry.
func (r *Registry) Register(b domain.Backend, s ArticleStore) {
	r.stores[b] = s
}

// Get resolves a backend to its store.
func (r *Registry) Get(b domain.Backend) (ArticleStore, error) {
	s, ok := r.stores[b]
	if !ok {
		return nil, fmt.Errorf("backend %q is not configured: %w", b, domain.ErrInvalidBackend)
	}
	return s, nil
}

// Backends returns the registered backends in stable order.
func (r *Registry) Backends() []domain.Backend {
	out := make([]domain.Backend, 0, len(r.stores))
	for b := range r.stores {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CloseAll closes every registered store.
func (r *Registry) CloseAll() {
	for _, s := range r.stores {
		s.Close()
	}
}
