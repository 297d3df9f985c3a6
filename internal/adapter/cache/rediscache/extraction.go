// Package rediscache holds the Redis-backed caches: successful resume
// extractions and the per-application rescore throttle.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// DefaultTTL is used when NewExtractionCache is given a non-positive ttl.
const DefaultTTL = 24 * time.Hour

// ExtractionCache stores CvData as JSON under a digest of the resume.
type ExtractionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.ExtractionCache = (*ExtractionCache)(nil)

// NewExtractionCache returns a cache writing entries with the given ttl.
func NewExtractionCache(rdb *redis.Client, ttl time.Duration) *ExtractionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ExtractionCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached extraction for key. A missing key is (zero, false, nil).
func (c *ExtractionCache) Get(ctx domain.Context, key string) (domain.CvData, bool, error) {
	ctx, span := otel.Tracer("cache.redis").Start(ctx, "ExtractionCache.Get")
	defer span.End()

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return domain.CvData{}, false, nil
	}
	if err != nil {
		return domain.CvData{}, false, fmt.Errorf("op=rediscache.Get: %w", err)
	}
	var cv domain.CvData
	if err := json.Unmarshal(raw, &cv); err != nil {
		// a corrupt entry is dropped so the next extraction replaces it
		_ = c.rdb.Del(ctx, key).Err()
		return domain.CvData{}, false, fmt.Errorf("op=rediscache.Get: %w: %v", domain.ErrSchemaInvalid, err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return cv, true, nil
}

// Set stores cv under key with the configured ttl.
func (c *ExtractionCache) Set(ctx domain.Context, key string, cv domain.CvData) error {
	ctx, span := otel.Tracer("cache.redis").Start(ctx, "ExtractionCache.Set")
	defer span.End()

	raw, err := json.Marshal(cv)
	if err != nil {
		return fmt.Errorf("op=rediscache.Set: %w", err)
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("op=rediscache.Set: %w", err)
	}
	return nil
}

// Ping reports whether Redis answers.
func Ping(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		return fmt.Errorf("redis not configured")
	}
	return rdb.Ping(ctx).Err()
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("op=rediscache.NewClient: %w", err)
	}
	return redis.NewClient(opt), nil
}
