// Command server starts the job match scoring HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/job-match-scorer/internal/adapter/cache/rediscache"
	"github.com/fairyhunter13/job-match-scorer/internal/adapter/httpserver"
	"github.com/fairyhunter13/job-match-scorer/internal/adapter/observability"
	"github.com/fairyhunter13/job-match-scorer/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/job-match-scorer/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/job-match-scorer/internal/app"
	"github.com/fairyhunter13/job-match-scorer/internal/config"
	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

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

	maxElapsed, initial := cfg.GetStartupBackoff()
	pool, err := postgres.Connect(ctx, cfg.DBURL, maxElapsed, initial)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		slog.Error("schema setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.ScoreRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(pool, cfg.ScoreRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.ScoreRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}

	rdb := app.ConnectRedis(ctx, cfg)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	scoringSvc, remotes, err := app.NewScoringService(ctx, cfg, rdb)
	if err != nil {
		slog.Error("scoring setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	// The rescore queue is optional; without it the rescore endpoint answers 503.
	var queue domain.RescoreQueue
	producer, err := redpanda.NewProducer(ctx, cfg.KafkaBrokers, cfg.RescoreTopic)
	if err != nil {
		slog.Warn("rescore producer unavailable, rescoring disabled", slog.Any("error", err))
	} else {
		queue = producer
		defer func() {
			if err := producer.Close(); err != nil {
				slog.Error("failed to close queue producer", slog.Any("error", err))
			}
		}()
	}

	apps := usecase.NewApplicationService(scoringSvc, postgres.NewScoreRepo(pool), queue)

	srv := httpserver.NewServer(cfg, scoringSvc, apps)
	srv.Remotes = map[string]httpserver.RemoteDependency{"nlp": remotes.NLP, "ml": remotes.ML}
	if producer != nil {
		srv.Remotes["queue"] = producer
	}
	srv.ModelInfo = remotes.ML.ModelInfo
	var redisPing app.RedisPinger
	if rdb != nil {
		redisPing = rdb
		srv.Limiter = rediscache.NewThrottle(rdb, rediscache.BucketPerMinute(cfg.RescorePerMinute))
	}
	srv.Checks = app.BuildReadinessChecks(pool, redisPing)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, srv),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
