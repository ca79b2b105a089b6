// Package chi is the HTTP surface: one question, repeated-question
// batches, and multi-question batches, plus health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/logger"
	healthuc "github.com/kailas-cloud/newsrag/internal/usecase/health"
)

// Request limits and defaults. Batches repeat one question batch_size
// times; multi-batches answer a list of distinct questions.
const (
	maxBatchSize = 100
	maxQueries   = 50
	maxWorkers   = 10

	defaultBatchSize  = 10
	defaultWorkers    = 2
	defaultDatabase   = "clickhouse"
	defaultRunID      = "test-run-1"
	defaultMultiRunID = "multi-batch-run"

	// modeDirect selects the retrieval-free pipeline instead of a
	// storage backend.
	modeDirect = "direct"
)

// Answerer runs the question pipeline in both modes.
type Answerer interface {
	Answer(ctx context.Context, question string, backend domain.Backend) domain.AnswerResult
	AnswerDirect(ctx context.Context, question string) domain.AnswerResult
}

// BatchRunner fans a list of questions out over a worker pool.
type BatchRunner interface {
	Run(ctx context.Context, questions []string, workers int, backend domain.Backend) ([]domain.AnswerResult, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server exposes the question-answering API.
type Server struct {
	answerer    Answerer
	batch       BatchRunner
	batchDirect BatchRunner
	health      HealthChecker
	logger      *zap.Logger
}

// NewServer creates an HTTP API server. batchDirect runs batches in
// retrieval-free mode and may equal batch when direct mode is unused.
func NewServer(
	answerer Answerer,
	batch BatchRunner,
	batchDirect BatchRunner,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		answerer:    answerer,
		batch:       batch,
		batchDirect: batchDirect,
		health:      health,
		logger:      logger,
	}
}

// Routes registers all endpoints on the router.
func (s *Server) Routes(r chirouter.Router) {
	r.Get("/answer-question", s.handleAnswerQuestion)
	r.Get("/answer-question-batch", s.handleAnswerQuestionBatch)
	r.Post("/answer-question-batch", s.handleAnswerQuestionBatch)
	r.Get("/answer-questions-multi-batch", s.handleMultiBatch)
	r.Post("/answer-questions-multi-batch", s.handleMultiBatch)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// queryMode is the parsed database selector: either a storage backend
// or the retrieval-free direct mode.
type queryMode struct {
	direct  bool
	backend domain.Backend
}

func parseDatabase(s string) (queryMode, error) {
	if s == "" {
		s = defaultDatabase
	}
	if s == modeDirect {
		return queryMode{direct: true}, nil
	}
	b, err := domain.ParseBackend(s)
	if err != nil {
		return queryMode{}, err
	}
	return queryMode{backend: b}, nil
}

// envelopeMetadata carries request timing the way callers already
// consume it: unix seconds.
type envelopeMetadata struct {
	StartTime        float64 `json:"start_time"`
	EndTime          float64 `json:"end_time"`
	QueriesProcessed *int    `json:"queries_processed,omitempty"`
}

func newMetadata(start, end time.Time) envelopeMetadata {
	return envelopeMetadata{
		StartTime: float64(start.UnixNano()) / float64(time.Second),
		EndTime:   float64(end.UnixNano()) / float64(time.Second),
	}
}

type answerEnvelope struct {
	Status        string              `json:"status"`
	Query         string              `json:"query"`
	Answer        domain.AnswerResult `json:"answer"`
	TotalDuration float64             `json:"total_duration"`
	Metadata      envelopeMetadata    `json:"metadata"`
}

// handleAnswerQuestion handles GET /answer-question.
func (s *Server) handleAnswerQuestion(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	mode, err := parseDatabase(r.URL.Query().Get("database"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	var answer domain.AnswerResult
	if mode.direct {
		answer = s.answerer.AnswerDirect(r.Context(), query)
	} else {
		answer = s.answerer.Answer(r.Context(), query, mode.backend)
	}
	end := time.Now()

	writeJSON(w, http.StatusOK, answerEnvelope{
		Status:        "success",
		Query:         query,
		Answer:        answer,
		TotalDuration: end.Sub(start).Seconds(),
		Metadata:      newMetadata(start, end),
	})
}

type batchRequest struct {
	Query      string  `json:"query"`
	BatchSize  *int    `json:"batch_size"`
	MaxWorkers *int    `json:"max_workers"`
	RunID      *string `json:"run_id"`
	Database   *string `json:"database"`
}

type batchEnvelope struct {
	Status              string                `json:"status"`
	Query               string                `json:"query"`
	BatchSize           int                   `json:"batch_size"`
	MaxWorkers          int                   `json:"max_workers"`
	RunID               string                `json:"run_id"`
	TotalDuration       float64               `json:"total_duration"`
	AvgDurationPerQuery float64               `json:"avg_duration_per_query"`
	Answers             []domain.AnswerResult `json:"answers"`
	Metadata            envelopeMetadata      `json:"metadata"`
}

type batchErrorEnvelope struct {
	Status     string `json:"status"`
	Error      string `json:"error"`
	Query      string `json:"query"`
	BatchSize  int    `json:"batch_size"`
	MaxWorkers int    `json:"max_workers"`
	RunID      string `json:"run_id"`
}

// handleAnswerQuestionBatch handles GET|POST /answer-question-batch:
// the same question answered batch_size times through the worker pool.
func (s *Server) handleAnswerQuestionBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeRequest(r, &req, func(q map[string][]string) error {
		return batchFromQuery(q, &req)
	}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	batchSize := intOrDefault(req.BatchSize, defaultBatchSize)
	workers := intOrDefault(req.MaxWorkers, defaultWorkers)
	runID := strOrDefault(req.RunID, defaultRunID)
	database := strOrDefault(req.Database, defaultDatabase)

	echo := batchErrorEnvelope{
		Status:     "error",
		Query:      req.Query,
		BatchSize:  batchSize,
		MaxWorkers: workers,
		RunID:      runID,
	}

	if req.Query == "" {
		echo.Error = "query is required"
		writeJSON(w, http.StatusBadRequest, echo)
		return
	}
	// batch_size 0 would also divide avg_duration_per_query by zero.
	if batchSize < 1 || batchSize > maxBatchSize {
		echo.Error = fmt.Sprintf("batch_size must be between 1 and %d, got %d", maxBatchSize, batchSize)
		writeJSON(w, http.StatusBadRequest, echo)
		return
	}
	if workers < 1 || workers > maxWorkers {
		echo.Error = fmt.Sprintf("max_workers must be between 1 and %d, got %d", maxWorkers, workers)
		writeJSON(w, http.StatusBadRequest, echo)
		return
	}
	mode, err := parseDatabase(database)
	if err != nil {
		echo.Error = err.Error()
		writeJSON(w, http.StatusBadRequest, echo)
		return
	}

	questions := make([]string, batchSize)
	for i := range questions {
		questions[i] = req.Query
	}

	ctx := s.runContext(r.Context(), runID)
	start := time.Now()
	answers, err := s.runBatch(ctx, questions, workers, mode)
	end := time.Now()
	if err != nil {
		echo.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, echo)
		return
	}

	total := end.Sub(start).Seconds()
	processed := len(answers)
	md := newMetadata(start, end)
	md.QueriesProcessed = &processed

	writeJSON(w, http.StatusOK, batchEnvelope{
		Status:              "success",
		Query:               req.Query,
		BatchSize:           batchSize,
		MaxWorkers:          workers,
		RunID:               runID,
		TotalDuration:       total,
		AvgDurationPerQuery: total / float64(batchSize),
		Answers:             answers,
		Metadata:            md,
	})
}

type multiBatchRequest struct {
	Queries    []string `json:"queries"`
	MaxWorkers *int     `json:"max_workers"`
	RunID      *string  `json:"run_id"`
	Database   *string  `json:"database"`
}

type multiBatchResult struct {
	Query  string              `json:"query"`
	Answer domain.AnswerResult `json:"answer"`
	Index  int                 `json:"index"`
}

type multiBatchEnvelope struct {
	Status              string             `json:"status"`
	TotalQueries        int                `json:"total_queries"`
	MaxWorkers          int                `json:"max_workers"`
	RunID               string             `json:"run_id"`
	TotalDuration       float64            `json:"total_duration"`
	AvgDurationPerQuery float64            `json:"avg_duration_per_query"`
	Results             []multiBatchResult `json:"results"`
	Metadata            envelopeMetadata   `json:"metadata"`
}

type multiBatchErrorEnvelope struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	TotalQueries int    `json:"total_queries"`
	MaxWorkers   int    `json:"max_workers"`
	RunID        string `json:"run_id"`
}

// handleMultiBatch handles GET|POST /answer-questions-multi-batch:
// distinct questions answered through the worker pool, results indexed
// by submission position.
func (s *Server) handleMultiBatch(w http.ResponseWriter, r *http.Request) {
	var req multiBatchRequest
	if err := decodeRequest(r, &req, func(q map[string][]string) error {
		return multiBatchFromQuery(q, &req)
	}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	workers := intOrDefault(req.MaxWorkers, defaultWorkers)
	runID := strOrDefault(req.RunID, defaultMultiRunID)
	database := strOrDefault(req.Database, defaultDatabase)

	echo := multiBatchErrorEnvelope{
		Status:       "error",
		TotalQueries: len(req.Queries),
		MaxWorkers:   workers,
		RunID:        runID,
	}

	if len(req.Queries) < 1 || len(req.Queries) > maxQueries {
		echo.Error = fmt.Sprintf("queries must contain between 1 and %d items, got %d", maxQueries, len(req.Queries))
		writeJSON(w, http.StatusBadRequest, echo)
		return
	}
	if workers < 1 || workers > maxWorkers {
		echo.Error = fmt.Sprintf("max_workers must be between 1 and %d, got %d", maxWorkers, workers)
		writeJSON(w, http.StatusBadRequest, echo)
		return
	}
	mode, err := parseDatabase(database)
	if err != nil {
		echo.Error = err.Error()
		writeJSON(w, http.StatusBadRequest, echo)
		return
	}

	ctx := s.runContext(r.Context(), runID)
	start := time.Now()
	answers, err := s.runBatch(ctx, req.Queries, workers, mode)
	end := time.Now()
	if err != nil {
		echo.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, echo)
		return
	}

	results := make([]multiBatchResult, len(answers))
	for i, a := range answers {
		results[i] = multiBatchResult{Query: req.Queries[i], Answer: a, Index: i}
	}

	total := end.Sub(start).Seconds()
	processed := len(answers)
	md := newMetadata(start, end)
	md.QueriesProcessed = &processed

	writeJSON(w, http.StatusOK, multiBatchEnvelope{
		Status:              "success",
		TotalQueries:        len(req.Queries),
		MaxWorkers:          workers,
		RunID:               runID,
		TotalDuration:       total,
		AvgDurationPerQuery: total / float64(len(req.Queries)),
		Results:             results,
		Metadata:            md,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func (s *Server) runBatch(ctx context.Context, questions []string, workers int, mode queryMode) ([]domain.AnswerResult, error) {
	if mode.direct {
		return s.batchDirect.Run(ctx, questions, workers, "")
	}
	return s.batch.Run(ctx, questions, workers, mode.backend)
}

// runContext tags the request logger with the caller-supplied run id
// so batch progress lines are attributable to their run.
func (s *Server) runContext(ctx context.Context, runID string) context.Context {
	l := logger.FromContext(ctx).With(zap.String("run_id", runID))
	return logger.ContextWithLogger(ctx, l)
}

// decodeRequest reads a JSON body when present, otherwise falls back
// to URL query parameters so batch endpoints work as plain GETs.
func decodeRequest(r *http.Request, body any, fromQuery func(map[string][]string) error) error {
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(body); err != nil {
			return err
		}
		return nil
	}
	return fromQuery(r.URL.Query())
}

func batchFromQuery(q map[string][]string, req *batchRequest) error {
	req.Query = first(q, "query")
	req.Database = strPtrIfSet(q, "database")
	req.RunID = strPtrIfSet(q, "run_id")

	var err error
	if req.BatchSize, err = intPtrIfSet(q, "batch_size"); err != nil {
		return err
	}
	req.MaxWorkers, err = intPtrIfSet(q, "max_workers")
	return err
}

func multiBatchFromQuery(q map[string][]string, req *multiBatchRequest) error {
	req.Queries = q["queries"]
	req.Database = strPtrIfSet(q, "database")
	req.RunID = strPtrIfSet(q, "run_id")

	var err error
	req.MaxWorkers, err = intPtrIfSet(q, "max_workers")
	return err
}

func first(q map[string][]string, key string) string {
	if vs := q[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func strPtrIfSet(q map[string][]string, key string) *string {
	if vs := q[key]; len(vs) > 0 {
		return &vs[0]
	}
	return nil
}

func intPtrIfSet(q map[string][]string, key string) (*int, error) {
	s := first(q, key)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.New(key + " must be an integer")
	}
	return &n, nil
}

func intOrDefault(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func strOrDefault(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
