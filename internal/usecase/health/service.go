package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks across every configured backend,
// the embedding provider, and the embedding cache.
type Service struct {
	stores    StoreLister
	embedding EmbeddingChecker
	cache     CacheChecker
}

// New creates a Service. embedding and cache can be nil.
func New(stores StoreLister, embedding EmbeddingChecker, cache CacheChecker) *Service {
	return &Service{stores: stores, embedding: embedding, cache: cache}
}

// Check pings every configured backend plus the embedding provider.
// One failing backend degrades the report without hiding the healthy
// ones.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	for _, b := range s.stores.Backends() {
		st, err := s.stores.Get(b)
		if err != nil {
			checks[string(b)] = CheckError
			continue
		}
		if err := st.Ping(ctx); err != nil {
			checks[string(b)] = CheckError
		} else {
			checks[string(b)] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
