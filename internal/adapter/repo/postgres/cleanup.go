package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CleanupService deletes stored scores older than the retention window.
type CleanupService struct {
	Pool          PgxPool
	RetentionDays int
	now           func() time.Time
}

// NewCleanupService creates a cleanup service; non-positive retention defaults to 90 days.
func NewCleanupService(pool PgxPool, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &CleanupService{Pool: pool, RetentionDays: retentionDays, now: time.Now}
}

// Cutoff is the oldest scored_at that survives a cleanup run.
func (s *CleanupService) Cutoff() time.Time {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return now().UTC().AddDate(0, 0, -s.RetentionDays)
}

// CleanupOldScores removes scores whose scored_at is before Cutoff.
func (s *CleanupService) CleanupOldScores(ctx context.Context) (int64, error) {
	cutoff := s.Cutoff()
	tag, err := s.Pool.Exec(ctx, `DELETE FROM application_scores WHERE scored_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=postgres.CleanupOldScores: %w", err)
	}
	slog.Info("score cleanup completed", slog.Int64("deleted_scores", tag.RowsAffected()), slog.Time("cutoff", cutoff))
	return tag.RowsAffected(), nil
}

// RunPeriodic runs a cleanup immediately and then every interval until ctx ends.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.CleanupOldScores(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}
	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if _, err := s.CleanupOldScores(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
