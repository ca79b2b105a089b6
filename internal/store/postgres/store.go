// Package postgres implements the article store over Postgres+pgvector.
//
// The SQL computes 1 - (embedding <=> query) directly, so the similarity
// already follows the shared "higher is more similar" convention.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/store"
)

// Compile-time check: Store implements store.ArticleStore.
var _ store.ArticleStore = (*Store)(nil)

// Config holds Postgres connection parameters.
type Config struct {
	DSN   string
	Table string
}

// Store searches articles in a pgvector-indexed Postgres table.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// NewStore creates a connection pool and verifies connectivity. Pool
// acquisition is scoped per query with release on every exit path — the
// connect-per-call lifecycle of earlier revisions leaked connections on
// error paths.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("dsn is required")
	}
	if cfg.Table == "" {
		cfg.Table = "articles"
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{pool: pool, table: cfg.Table}, nil
}

// SearchArticles runs a cosine nearest-neighbor query.
func (s *Store) SearchArticles(ctx context.Context, vector []float32, limit int) ([]domain.Article, error) {
	query := fmt.Sprintf(`
		SELECT url, title, body, publication_date::text,
		       1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, s.table)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres search: %v: %w", err, domain.ErrBackendUnavailable)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.URL, &a.Title, &a.Body, &a.PublicationDate, &a.SimilarityScore); err != nil {
			return nil, fmt.Errorf("postgres scan: %v: %w", err, domain.ErrBackendUnavailable)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres rows: %v: %w", err, domain.ErrBackendUnavailable)
	}

	if len(articles) == 0 {
		return nil, domain.ErrNoMatches
	}
	return articles, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
