package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/kirillkom/hybrid-rag/internal/adapters/http"
	"github.com/kirillkom/hybrid-rag/internal/bootstrap"
	"github.com/kirillkom/hybrid-rag/internal/config"
	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/observability/logging"
	"github.com/kirillkom/hybrid-rag/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:     logger,
		Observer:   httpMetrics,
		Resilience: httpMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Load or build before serving; an empty corpus is not fatal.
	if _, err := app.Knowledge.Load(ctx); err != nil && !errors.Is(err, domain.ErrEmptyCorpus) {
		logger.Warn("knowledge_base_not_loaded", "error", err)
	}

	if app.Scheduler != nil {
		go app.Scheduler.Run(ctx)
	}
	if app.Queue != nil {
		go func() {
			err := app.Queue.SubscribeKnowledgeBaseUpdated(ctx, func(ctx context.Context, status domain.KnowledgeBaseStatus) error {
				logger.Info("knowledge_base_updated", "chunks", status.NumChunks, "built_at", status.BuiltAt)
				_, err := app.Knowledge.Reload(ctx)
				return err
			})
			if err != nil {
				logger.Error("kb_updated_subscribe_failed", "error", err)
			}
		}()
	}
	if cfg.WatchKBStore {
		go func() {
			if err := app.NewStoreWatcher().Run(ctx); err != nil {
				logger.Error("kb_store_watch_failed", "error", err)
			}
		}()
	}

	deps := httpadapter.Dependencies{
		Answerer:  app.Query,
		Searcher:  app.Query,
		Knowledge: app.Knowledge,
		Ingestor:  app.Ingest,
		Metrics:   httpMetrics,
	}
	// The admin endpoint only goes asynchronous when a worker can pick it up.
	if app.Queue != nil {
		deps.Rebuilds = app.Queue
	}
	router, err := httpadapter.NewRouter(cfg, deps)
	if err != nil {
		logger.Error("router_init_failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.LLMTimeout*3 + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
