package health

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/store"
)

type pingStore struct {
	err error
}

func (p *pingStore) SearchArticles(_ context.Context, _ []float32, _ int) ([]domain.Article, error) {
	return nil, nil
}
func (p *pingStore) Ping(_ context.Context) error { return p.err }
func (p *pingStore) Close()                       {}

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

type mockCache struct {
	err error
}

func (m *mockCache) Ping(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	reg := store.NewRegistry()
	reg.Register(domain.BackendClickHouse, &pingStore{})
	reg.Register(domain.BackendPostgres, &pingStore{})
	svc := New(reg, &mockChecker{}, nil)

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Fatalf("expected healthy, got %s", report.Status)
	}
	if len(report.Checks) != 3 {
		t.Fatalf("expected checks for 2 backends + embedding, got %v", report.Checks)
	}
	for name, res := range report.Checks {
		if res != CheckOK {
			t.Fatalf("expected %s ok, got %s", name, res)
		}
	}
}

func TestCheck_OneBackendDown(t *testing.T) {
	reg := store.NewRegistry()
	reg.Register(domain.BackendClickHouse, &pingStore{})
	reg.Register(domain.BackendCassandra, &pingStore{err: errors.New("no hosts")})
	svc := New(reg, &mockChecker{}, nil)

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Fatalf("expected degraded, got %s", report.Status)
	}
	if report.Checks["cassandra"] != CheckError {
		t.Fatalf("expected cassandra error, got %v", report.Checks)
	}
	if report.Checks["clickhouse"] != CheckOK {
		t.Fatalf("healthy backend must stay visible, got %v", report.Checks)
	}
}

func TestCheck_NilEmbeddingSkipped(t *testing.T) {
	reg := store.NewRegistry()
	reg.Register(domain.BackendClickHouse, &pingStore{})
	svc := New(reg, nil, nil)

	report := svc.Check(context.Background())

	if _, ok := report.Checks["embedding"]; ok {
		t.Fatal("embedding check must be skipped when no checker is wired")
	}
	if report.Status != Healthy {
		t.Fatalf("expected healthy, got %s", report.Status)
	}
}

func TestCheck_CacheReported(t *testing.T) {
	reg := store.NewRegistry()
	reg.Register(domain.BackendClickHouse, &pingStore{})
	svc := New(reg, &mockChecker{}, &mockCache{})

	report := svc.Check(context.Background())

	if report.Checks["cache"] != CheckOK {
		t.Fatalf("expected cache ok, got %v", report.Checks)
	}
	if report.Status != Healthy {
		t.Fatalf("expected healthy, got %s", report.Status)
	}
}

func TestCheck_CacheDownDegrades(t *testing.T) {
	reg := store.NewRegistry()
	reg.Register(domain.BackendClickHouse, &pingStore{})
	svc := New(reg, &mockChecker{}, &mockCache{err: errors.New("connection refused")})

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Fatalf("expected degraded, got %s", report.Status)
	}
	if report.Checks["cache"] != CheckError {
		t.Fatalf("expected cache error, got %v", report.Checks)
	}
	if report.Checks["clickhouse"] != CheckOK {
		t.Fatalf("healthy backend must stay visible, got %v", report.Checks)
	}
}

func TestCheck_EmbeddingDownDegrades(t *testing.T) {
	reg := store.NewRegistry()
	reg.Register(domain.BackendClickHouse, &pingStore{})
	svc := New(reg, &mockChecker{err: errors.New("api down")}, nil)

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Fatalf("expected degraded, got %s", report.Status)
	}
}
