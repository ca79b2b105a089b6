package domain

import "fmt"

// Backend identifies one of the interchangeable article stores.
type Backend string

const (
	// BackendClickHouse searches the ClickHouse article table.
	BackendClickHouse Backend = "clickhouse"
	// BackendPostgres searches the Postgres+pgvector article table.
	BackendPostgres Backend = "postgres"
	// BackendCassandra searches the Cassandra article table via ANN.
	BackendCassandra Backend = "cassandra"
)

// Backends lists every valid storage backend, in the order they are documented.
func Backends() []Backend {
	return []Backend{BackendClickHouse, BackendPostgres, BackendCassandra}
}

// ParseBackend validates a database identifier from the API boundary.
// Unknown values are rejected with ErrInvalidBackend before any I/O happens.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendClickHouse, BackendPostgres, BackendCassandra:
		return Backend(s), nil
	}
	return "", fmt.Errorf("unknown database %q (must be one of %v): %w", s, Backends(), ErrInvalidBackend)
}

// String implements fmt.Stringer.
func (b Backend) String() string { return string(b) }
