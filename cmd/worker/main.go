// Command worker consumes rescore requests and stores the new scores.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/job-match-scorer/internal/adapter/observability"
	"github.com/fairyhunter13/job-match-scorer/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/job-match-scorer/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/job-match-scorer/internal/app"
	"github.com/fairyhunter13/job-match-scorer/internal/config"
	"github.com/fairyhunter13/job-match-scorer/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// The worker exposes its own /metrics for queue and scoring instrumentation.
	observability.InitMetrics()
	metricsSrv := &http.Server{Addr: ":9090", Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	maxElapsed, initial := cfg.GetStartupBackoff()
	pool, err := postgres.Connect(ctx, cfg.DBURL, maxElapsed, initial)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		slog.Error("schema setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	rdb := app.ConnectRedis(ctx, cfg)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	scoringSvc, _, err := app.NewScoringService(ctx, cfg, rdb)
	if err != nil {
		slog.Error("scoring setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	apps := usecase.NewApplicationService(scoringSvc, postgres.NewScoreRepo(pool), nil)
	apps.Retry = usecase.PersistRetry{MaxElapsed: time.Minute, Initial: 500 * time.Millisecond}

	consumer, err := redpanda.NewConsumer(ctx, cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.RescoreTopic, apps)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("worker started, waiting for rescore requests",
		slog.String("topic", cfg.RescoreTopic), slog.String("group", cfg.ConsumerGroup))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("consumer stopped with error", slog.Any("error", err))
	}
	if err := consumer.Close(); err != nil {
		slog.Error("failed to close consumer", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	slog.Info("worker stopped")
}
