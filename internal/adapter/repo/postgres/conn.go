// Package postgres persists application scores in PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the subset of *pgxpool.Pool the repositories use.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a traced pgx connection pool from the provided DSN.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("op=postgres.NewPool: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("op=postgres.NewPool: %w", err)
	}
	return pool, nil
}

// Connect opens the pool and pings it with exponential backoff until it
// answers or maxElapsed passes. Only used at process start.
func Connect(ctx context.Context, dsn string, maxElapsed, initial time.Duration) (*pgxpool.Pool, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := PingWithBackoff(ctx, pool, maxElapsed, initial); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Pinger is anything with a context-aware Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// PingWithBackoff retries p.Ping until it succeeds, the window closes or ctx ends.
func PingWithBackoff(ctx context.Context, p Pinger, maxElapsed, initial time.Duration) error {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	notify := func(err error, wait time.Duration) {
		slog.Warn("database not ready, retrying", slog.Any("error", err), slog.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(func() error { return p.Ping(ctx) }, backoff.WithContext(expo, ctx), notify); err != nil {
		return fmt.Errorf("op=postgres.Connect: %w", err)
	}
	return nil
}
