package app

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/job-match-scorer/internal/adapter/httpserver"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// RedisPinger is the minimal Redis surface needed for readiness.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// BuildReadinessChecks returns the readiness checks for the score store and,
// when configured, the Redis cache. The remote analysis services are not
// readiness gates: scoring degrades without them and their state is exposed
// on /v1/dependencies.
func BuildReadinessChecks(pool Pinger, rdb RedisPinger) map[string]httpserver.ReadinessCheck {
	checks := map[string]httpserver.ReadinessCheck{
		"db": func(ctx context.Context) error {
			if pool == nil {
				return errors.New("db not configured")
			}
			return pool.Ping(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}
