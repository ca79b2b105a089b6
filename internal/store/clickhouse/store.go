// Package clickhouse implements the article store over ClickHouse.
//
// ClickHouse exposes cosineDistance (0 = identical); the store converts
// it to the shared "higher is more similar" convention as 1 - distance.
package clickhouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/store"
)

// Compile-time check: Store implements store.ArticleStore.
var _ store.ArticleStore = (*Store)(nil)

// Config holds ClickHouse connection parameters.
type Config struct {
	Addrs    []string
	Database string
	Username string
	Password string
	Table    string
}

// Store searches articles in a ClickHouse table via cosineDistance.
type Store struct {
	conn  driver.Conn
	table string
}

// NewStore opens a pooled native-protocol connection. The pool is shared
// across concurrent searches and closed once on shutdown.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("addrs is required")
	}
	if cfg.Table == "" {
		cfg.Table = "guardian_articles"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addrs,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	return &Store{conn: conn, table: cfg.Table}, nil
}

// SearchArticles runs a cosine-distance nearest-neighbor scan.
func (s *Store) SearchArticles(ctx context.Context, vector []float32, limit int) ([]domain.Article, error) {
	query := fmt.Sprintf(`
		SELECT
			url,
			title,
			body,
			toString(publication_date),
			cosineDistance(embedding, ?) AS distance
		FROM %s
		ORDER BY distance ASC
		LIMIT ?`, s.table)

	rows, err := s.conn.Query(ctx, query, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("clickhouse search: %v: %w", err, domain.ErrBackendUnavailable)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var (
			a        domain.Article
			distance float64
		)
		if err := rows.Scan(&a.URL, &a.Title, &a.Body, &a.PublicationDate, &distance); err != nil {
			return nil, fmt.Errorf("clickhouse scan: %v: %w", err, domain.ErrBackendUnavailable)
		}
		a.SimilarityScore = 1 - distance
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clickhouse rows: %v: %w", err, domain.ErrBackendUnavailable)
	}

	if len(articles) == 0 {
		return nil, domain.ErrNoMatches
	}
	return articles, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	_ = s.conn.Close()
}
