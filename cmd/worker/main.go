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

	"github.com/kirillkom/hybrid-rag/internal/bootstrap"
	"github.com/kirillkom/hybrid-rag/internal/config"
	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/observability/logging"
	"github.com/kirillkom/hybrid-rag/internal/observability/metrics"
)

const rebuildTimeout = 30 * time.Minute

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.NATSURL == "" {
		logger.Error("worker_requires_nats", "hint", "set NATS_URL")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:     logger,
		Observer:   workerMetrics,
		Resilience: workerMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSRebuildSubject)
	err = app.Queue.SubscribeRebuildRequested(ctx, func(handlerCtx context.Context, trigger domain.BuildTrigger) error {
		buildCtx, cancel := context.WithTimeout(handlerCtx, rebuildTimeout)
		defer cancel()

		workerMetrics.StartRebuild()
		status, err := app.Knowledge.Rebuild(buildCtx, trigger)
		workerMetrics.FinishRebuild("worker", err)
		if err != nil {
			return err
		}
		logger.Info("rebuild_done", "trigger", trigger, "chunks", status.NumChunks)
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}
}
