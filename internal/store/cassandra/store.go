// Package cassandra implements the article store over Cassandra ANN search.
//
// Cassandra's ANN OF ordering exposes no per-row distance, so every hit
// carries SimilarityScore 0 while the nearest-first rank order is kept.
package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/store"
)

// Compile-time check: Store implements store.ArticleStore.
var _ store.ArticleStore = (*Store)(nil)

// Config holds Cassandra connection parameters.
type Config struct {
	Hosts    []string
	Port     int
	Keyspace string
	Table    string
}

// Store searches articles in a Cassandra table via vector ANN.
type Store struct {
	session *gocql.Session
	table   string
}

// NewStore connects a session to the cluster. The session is shared
// across concurrent searches and closed once on shutdown.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Hosts) == 0 {
		return nil, errors.New("hosts is required")
	}
	if cfg.Table == "" {
		cfg.Table = "articles"
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	if cfg.Port > 0 {
		cluster.Port = cfg.Port
	}
	cluster.Keyspace = cfg.Keyspace

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Store{session: session, table: cfg.Table}, nil
}

// SearchArticles runs an approximate nearest-neighbor query.
func (s *Store) SearchArticles(ctx context.Context, vector []float32, limit int) ([]domain.Article, error) {
	stmt := fmt.Sprintf(`
		SELECT url, title, body, publication_date
		FROM %s
		ORDER BY embedding ANN OF ?
		LIMIT ?`, s.table)

	iter := s.session.Query(stmt, vector, limit).WithContext(ctx).Iter()

	var articles []domain.Article
	var a domain.Article
	for iter.Scan(&a.URL, &a.Title, &a.Body, &a.PublicationDate) {
		articles = append(articles, a)
		a = domain.Article{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("cassandra search: %v: %w", err, domain.ErrBackendUnavailable)
	}

	if len(articles) == 0 {
		return nil, domain.ErrNoMatches
	}
	return articles, nil
}

// Ping checks connectivity with a lightweight system query.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.session.Query("SELECT release_version FROM system.local").WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("cassandra ping: %w", err)
	}
	return nil
}

// Close releases the session.
func (s *Store) Close() {
	s.session.Close()
}
