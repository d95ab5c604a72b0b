// Command worker consumes queued submissions and executes them in the
// sandbox.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rrronit/flash/internal/adapter/observability"
	"github.com/rrronit/flash/internal/adapter/store/redisstore"
	"github.com/rrronit/flash/internal/config"
	"github.com/rrronit/flash/internal/sandbox/isolate"
	"github.com/rrronit/flash/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Expose job and sandbox metrics on a dedicated endpoint; the HTTP
	// server has its own /metrics.
	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := redisstore.New(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("redis connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	exec := isolate.New(isolate.Config{IsolatePath: cfg.IsolatePath}, store)
	pool := worker.New(store, exec, cfg.QueueName, cfg.Concurrency())

	slog.Info("worker starting",
		slog.String("env", cfg.AppEnv),
		slog.String("queue", cfg.QueueName),
		slog.Int("concurrency", cfg.Concurrency()))

	pool.Run(ctx)

	slog.Info("worker stopped")
}
