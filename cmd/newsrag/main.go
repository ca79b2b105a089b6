package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrag/internal/config"
	dbRedis "github.com/kailas-cloud/newsrag/internal/db/redis"
	"github.com/kailas-cloud/newsrag/internal/domain"
	logpkg "github.com/kailas-cloud/newsrag/internal/logger"
	"github.com/kailas-cloud/newsrag/internal/metrics"
	"github.com/kailas-cloud/newsrag/internal/repository/embcache"
	tracerepo "github.com/kailas-cloud/newsrag/internal/repository/traces"
	"github.com/kailas-cloud/newsrag/internal/store"
	cassStore "github.com/kailas-cloud/newsrag/internal/store/cassandra"
	chStore "github.com/kailas-cloud/newsrag/internal/store/clickhouse"
	pgStore "github.com/kailas-cloud/newsrag/internal/store/postgres"
	anthropicGen "github.com/kailas-cloud/newsrag/internal/transport/anthropic"
	chiTransport "github.com/kailas-cloud/newsrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/newsrag/internal/transport/openai"
	batchuc "github.com/kailas-cloud/newsrag/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/newsrag/internal/usecase/health"
	pipelineuc "github.com/kailas-cloud/newsrag/internal/usecase/pipeline"
	retrievaluc "github.com/kailas-cloud/newsrag/internal/usecase/retrieval"
	traceuc "github.com/kailas-cloud/newsrag/internal/usecase/trace"
	"github.com/kailas-cloud/newsrag/internal/version"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load() //nolint:errcheck

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting newsrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	ctx := context.Background()

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Article stores — one per configured backend
	registry := store.NewRegistry()
	defer registry.CloseAll()

	if cfg.Backends.ClickHouse.Enabled() {
		st, err := chStore.NewStore(chStore.Config{
			Addrs:    cfg.Backends.ClickHouse.Addrs,
			Database: cfg.Backends.ClickHouse.Database,
			Username: cfg.Backends.ClickHouse.Username,
			Password: cfg.Backends.ClickHouse.Password,
			Table:    cfg.Backends.ClickHouse.Table,
		})
		if err != nil {
			logger.Fatal("Failed to connect to ClickHouse", zap.Error(err))
		}
		registry.Register(domain.BackendClickHouse, st)
	}
	if cfg.Backends.Postgres.Enabled() {
		st, err := pgStore.NewStore(ctx, pgStore.Config{
			DSN:   cfg.Backends.Postgres.DSN,
			Table: cfg.Backends.Postgres.Table,
		})
		if err != nil {
			logger.Fatal("Failed to connect to Postgres", zap.Error(err))
		}
		registry.Register(domain.BackendPostgres, st)
	}
	if cfg.Backends.Cassandra.Enabled() {
		st, err := cassStore.NewStore(cassStore.Config{
			Hosts:    cfg.Backends.Cassandra.Hosts,
			Port:     cfg.Backends.Cassandra.Port,
			Keyspace: cfg.Backends.Cassandra.Keyspace,
			Table:    cfg.Backends.Cassandra.Table,
		})
		if err != nil {
			logger.Fatal("Failed to connect to Cassandra", zap.Error(err))
		}
		registry.Register(domain.BackendCassandra, st)
	}
	logger.Info("Article stores ready", zap.Any("backends", registry.Backends()))

	// Embedder chain: OpenAI -> cached (when Redis is configured)
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = baseEmbedder
	var cacheChecker healthuc.CacheChecker
	if cfg.Cache.Enabled() {
		kv, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to connect to embedding cache", zap.Error(err))
		}
		defer kv.Close()
		embedder = embcache.New(
			baseEmbedder, kv,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.EmbeddingCacheTotal, logger,
		)
		cacheChecker = kv
		logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Generator — provider strategy
	var generator pipelineuc.Generator
	switch cfg.LLM.Provider {
	case "anthropic":
		generator = anthropicGen.NewGenerator(anthropicGen.GeneratorConfig{
			APIKey:      cfg.LLM.Anthropic.APIKey,
			Model:       cfg.LLM.Anthropic.Model,
			MaxTokens:   cfg.LLM.Anthropic.MaxTokens,
			Temperature: cfg.LLM.Anthropic.Temperature,
			Timeout:     time.Duration(cfg.LLM.Anthropic.TimeoutSec) * time.Second,
		})
	case "openai":
		generator = openaiTransport.NewGenerator(openaiTransport.GeneratorConfig{
			APIKey:      cfg.LLM.OpenAI.APIKey,
			BaseURL:     cfg.LLM.OpenAI.BaseURL,
			Model:       cfg.LLM.OpenAI.Model,
			MaxTokens:   cfg.LLM.OpenAI.MaxTokens,
			Temperature: cfg.LLM.OpenAI.Temperature,
		})
	default:
		logger.Fatal("Unknown LLM provider", zap.String("provider", cfg.LLM.Provider))
	}

	// Trace recorder — ClickHouse-backed, optional
	var tracer pipelineuc.Tracer = pipelineuc.NopTracer{}
	if cfg.Trace.Enabled {
		traceStore, err := tracerepo.NewRepository(ctx, tracerepo.Config{
			Addrs:    cfg.Backends.ClickHouse.Addrs,
			Database: cfg.Backends.ClickHouse.Database,
			Username: cfg.Backends.ClickHouse.Username,
			Password: cfg.Backends.ClickHouse.Password,
			Table:    cfg.Trace.Table,
		})
		if err != nil {
			logger.Fatal("Failed to create trace store", zap.Error(err))
		}
		defer func() { _ = traceStore.Close() }()

		recorder := traceuc.NewRecorder(traceStore, cfg.Trace.BufferSize, logger)
		defer recorder.Close(10 * time.Second)
		tracer = recorder
		logger.Info("Run tracing enabled", zap.String("table", cfg.Trace.Table))
	}

	// Use case services
	retrievalSvc := retrievaluc.New(registry, embedder)
	pipelineSvc := pipelineuc.New(retrievalSvc, generator, tracer, cfg.Pipeline.MaxArticles)
	batchSvc := batchuc.New(pipelineSvc)
	batchDirectSvc := batchuc.New(directAnswerer{pipelineSvc})
	healthSvc := healthuc.New(registry, newEmbeddingHealthChecker(baseEmbedder), cacheChecker)

	server := chiTransport.NewServer(pipelineSvc, batchSvc, batchDirectSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// directAnswerer runs batches through the retrieval-free pipeline mode.
type directAnswerer struct {
	pipeline *pipelineuc.Service
}

func (d directAnswerer) Answer(ctx context.Context, question string, _ domain.Backend) domain.AnswerResult {
	return d.pipeline.AnswerDirect(ctx, question)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"status": "error",
						"error":  "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
