package nlp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	obsadapter "github.com/fairyhunter13/job-match-scorer/internal/adapter/observability"
	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/observability"
)

// CachedExtractor serves repeated extractions of the same resume from a cache.
// Only real extractions are stored; fallback estimates are always recomputed.
// Cache errors are logged and treated as misses.
type CachedExtractor struct {
	next  domain.CVExtractor
	cache domain.ExtractionCache
}

// NewCachedExtractor wraps next with cache. A nil cache returns next unchanged.
func NewCachedExtractor(next domain.CVExtractor, cache domain.ExtractionCache) domain.CVExtractor {
	if cache == nil {
		return next
	}
	return &CachedExtractor{next: next, cache: cache}
}

// Extract implements domain.CVExtractor.
func (c *CachedExtractor) Extract(ctx context.Context, resume string, kind domain.FileKind) domain.CvData {
	if resume == "" {
		return c.next.Extract(ctx, resume, kind)
	}
	lg := observability.LoggerWithRequestID(ctx)
	key := CacheKey(resume, kind)
	cv, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		obsadapter.RecordCacheLookup("error")
		lg.Warn("extraction cache get failed", slog.Any("error", err))
	case ok:
		obsadapter.RecordCacheLookup("hit")
		return cv
	default:
		obsadapter.RecordCacheLookup("miss")
	}

	cv = c.next.Extract(ctx, resume, kind)
	if cv.Fallback {
		return cv
	}
	if err := c.cache.Set(ctx, key, cv); err != nil {
		lg.Warn("extraction cache set failed", slog.Any("error", err))
	}
	return cv
}

// CacheKey digests the resume and kind.
func CacheKey(resume string, kind domain.FileKind) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(resume))
	return "cv:" + hex.EncodeToString(h.Sum(nil))
}
