// Package traces persists LLM run traces to ClickHouse.
//
// Rows are keyed by run id on a ReplacingMergeTree so re-saving a
// finalized run supersedes any partial row. Reads collapse duplicates
// with FINAL.
package traces

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/kailas-cloud/newsrag/internal/domain"
)

// Config holds ClickHouse connection parameters for the trace table.
type Config struct {
	Addrs    []string
	Database string
	Username string
	Password string
	Table    string
}

// Repository stores run traces in a ClickHouse table.
type Repository struct {
	conn  driver.Conn
	table string
}

// NewRepository opens a connection pool and creates the trace table if
// it does not exist yet.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.Table == "" {
		cfg.Table = "llm_runs"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addrs,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	r := &Repository{conn: conn, table: cfg.Table}
	if err := r.ensureTable(ctx); err != nil {
		_ = conn.Close() //nolint:errcheck
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id            String,
			name          String,
			status        String,
			total_tokens  UInt64,
			total_cost    Float64,
			start_time    DateTime64(6, 'UTC'),
			end_time      DateTime64(6, 'UTC'),
			duration      Float64,
			inputs        String,
			outputs       String,
			error         String,
			tags          Array(String),
			metadata      Map(String, String),
			parent_run_id String,
			child_runs    Array(String)
		)
		ENGINE = ReplacingMergeTree(end_time)
		ORDER BY id`, r.table)

	if err := r.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create trace table: %w", err)
	}
	return nil
}

// Save writes one finalized trace row.
func (r *Repository) Save(ctx context.Context, t domain.RunTrace) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (
			id, name, status, total_tokens, total_cost,
			start_time, end_time, duration,
			inputs, outputs, error, tags, metadata,
			parent_run_id, child_runs
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.table)

	err := r.conn.Exec(ctx, stmt,
		t.ID, t.Name, t.Status, uint64(t.TotalTokens), t.TotalCost,
		t.StartTime.UTC(), t.EndTime.UTC(), t.Duration.Seconds(),
		t.Inputs, t.Outputs, t.Error, t.Tags, t.Metadata,
		t.ParentRunID, t.ChildRunIDs,
	)
	if err != nil {
		return fmt.Errorf("insert trace: %w", err)
	}
	return nil
}

// FindByID returns the trace with the given run id.
func (r *Repository) FindByID(ctx context.Context, id string) (domain.RunTrace, error) {
	stmt := fmt.Sprintf(`
		SELECT id, name, status, total_tokens, total_cost,
		       start_time, end_time, duration,
		       inputs, outputs, error, tags, metadata,
		       parent_run_id, child_runs
		FROM %s FINAL
		WHERE id = ?`, r.table)

	return r.scanOne(r.conn.QueryRow(ctx, stmt, id))
}

// FindByName returns the most recently started trace with the given
// run name.
func (r *Repository) FindByName(ctx context.Context, name string) (domain.RunTrace, error) {
	stmt := fmt.Sprintf(`
		SELECT id, name, status, total_tokens, total_cost,
		       start_time, end_time, duration,
		       inputs, outputs, error, tags, metadata,
		       parent_run_id, child_runs
		FROM %s FINAL
		WHERE name = ?
		ORDER BY start_time DESC
		LIMIT 1`, r.table)

	return r.scanOne(r.conn.QueryRow(ctx, stmt, name))
}

func (r *Repository) scanOne(row driver.Row) (domain.RunTrace, error) {
	var (
		t           domain.RunTrace
		totalTokens uint64
		durationSec float64
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.Status, &totalTokens, &t.TotalCost,
		&t.StartTime, &t.EndTime, &durationSec,
		&t.Inputs, &t.Outputs, &t.Error, &t.Tags, &t.Metadata,
		&t.ParentRunID, &t.ChildRunIDs,
	)
	if err != nil {
		return domain.RunTrace{}, fmt.Errorf("scan trace: %w", err)
	}
	t.TotalTokens = int(totalTokens)
	t.Duration = time.Duration(durationSec * float64(time.Second))
	return t, nil
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.conn.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.conn.Close()
}
