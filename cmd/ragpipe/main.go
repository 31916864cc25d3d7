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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/config"
	"github.com/kailas-cloud/ragpipe/internal/db"
	dbRedis "github.com/kailas-cloud/ragpipe/internal/db/redis"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/prompt"
	logpkg "github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
	documentrepo "github.com/kailas-cloud/ragpipe/internal/repository/document"
	"github.com/kailas-cloud/ragpipe/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/ragpipe/internal/repository/search"
	"github.com/kailas-cloud/ragpipe/internal/transport/httpapi"
	openaiProvider "github.com/kailas-cloud/ragpipe/internal/transport/openai"
	answeruc "github.com/kailas-cloud/ragpipe/internal/usecase/answer"
	composeuc "github.com/kailas-cloud/ragpipe/internal/usecase/compose"
	expanduc "github.com/kailas-cloud/ragpipe/internal/usecase/expand"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragpipe/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/ragpipe/internal/usecase/retrieve"
	"github.com/kailas-cloud/ragpipe/internal/version"
)

func main() {
	// .env is optional, real env vars win
	_ = godotenv.Load()

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

	logger.Info("Starting ragpipe API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline and provider metrics explicitly (no init())
	metrics.RegisterProviderMetrics()
	metrics.RegisterPipelineMetrics()

	embCfg := cfg.Providers.Embedding
	baseEmbedder := openaiProvider.NewEmbedder(&openaiProvider.EmbedderConfig{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	queryEmbedder := buildQueryEmbedder(baseEmbedder, embCfg, store, logger)
	logger.Info("Embedder created",
		zap.String("model", embCfg.Model),
		zap.Int("dimensions", embCfg.Dimensions),
		zap.Bool("cache", embCfg.CacheTTLHours > 0),
	)

	genCfg := cfg.Providers.Generation
	generator := openaiProvider.NewGenerator(&openaiProvider.GeneratorConfig{
		APIKey:      genCfg.APIKey,
		BaseURL:     genCfg.BaseURL,
		Model:       genCfg.Model,
		Temperature: genCfg.Temperature,
		MaxTokens:   genCfg.MaxTokens,
		Provider:    "openai",
		Logger:      logger,
	})
	logger.Info("Generator created", zap.String("model", genCfg.Model))

	vectorCfg := domain.DefaultVectorConfig()
	if embCfg.Dimensions > 0 {
		vectorCfg.Dimensions = embCfg.Dimensions
	}

	docRepo := documentrepo.New(store, vectorCfg)
	if err := docRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create vector index", zap.Error(err))
	}
	searchRepo := searchrepo.New(store)

	expandTmpl := loadTemplate(logger, cfg.Pipeline.ExpandTemplate, "question", "num_queries")
	answerTmpl := loadTemplate(logger, cfg.Pipeline.AnswerTemplate, "question", "context")

	expandSvc := expanduc.New(generator, expandTmpl)
	retrieveSvc := retrieveuc.New(queryEmbedder, searchRepo,
		retrieveuc.WithConcurrency(cfg.Pipeline.Concurrency),
		retrieveuc.WithSearchTimeout(time.Duration(cfg.Pipeline.SearchTimeoutSec)*time.Second),
	)
	composeSvc := composeuc.New(generator, answerTmpl)
	answerSvc := answeruc.New(expandSvc, retrieveSvc, composeSvc, cfg.Pipeline.NumQueries, cfg.Pipeline.TopK)
	ingestSvc := ingestuc.New(docRepo, baseEmbedder, vectorCfg.Dimensions)
	healthSvc := healthuc.New(store, baseEmbedder, generator)

	server := httpapi.NewServer(answerSvc, ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

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

// buildQueryEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
// The instruction decorator is outermost so the cache key includes the instruction.
func buildQueryEmbedder(
	base domain.Embedder,
	cfg config.EmbeddingConfig,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cfg.CacheTTLHours > 0 {
		ttl := time.Duration(cfg.CacheTTLHours) * time.Hour
		embedder = embcache.New(embedder, store, ttl, metrics.EmbeddingCacheTotal, logger)
	}
	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder
}

// loadTemplate parses a configured template or returns nil for the built-in default.
func loadTemplate(logger *zap.Logger, text string, required ...string) *prompt.Template {
	if text == "" {
		return nil
	}
	tmpl, err := prompt.New(text, required...)
	if err != nil {
		logger.Fatal("Invalid prompt template", zap.Error(err))
	}
	return &tmpl
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
						"code":    "internal_error",
						"message": "internal error",
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

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
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
