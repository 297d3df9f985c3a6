package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// ScoreRepo persists MatchResults on application records.
type ScoreRepo struct{ Pool PgxPool }

var _ domain.ScoreRepository = (*ScoreRepo)(nil)

// NewScoreRepo constructs a ScoreRepo with the given pool.
func NewScoreRepo(p PgxPool) *ScoreRepo { return &ScoreRepo{Pool: p} }

// Upsert inserts or replaces the score of an application.
func (r *ScoreRepo) Upsert(ctx domain.Context, s domain.ApplicationScore) error {
	tracer := otel.Tracer("repo.scores")
	ctx, span := tracer.Start(ctx, "scores.Upsert")
	defer span.End()
	q := `INSERT INTO application_scores (application_id, score, explanation, ml_prediction, ml_confidence, fallback, scored_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (application_id)
	DO UPDATE SET score=EXCLUDED.score, explanation=EXCLUDED.explanation, ml_prediction=EXCLUDED.ml_prediction,
		ml_confidence=EXCLUDED.ml_confidence, fallback=EXCLUDED.fallback, scored_at=EXCLUDED.scored_at`
	res := s.Result
	_, err := r.Pool.Exec(ctx, q, s.ApplicationID, res.Score, res.Explanation,
		string(res.MLPrediction), string(res.MLConfidence), s.Fallback, s.ScoredAt)
	if err != nil {
		return fmt.Errorf("op=scores.Upsert: %w", err)
	}
	return nil
}

// Get loads the stored score of an application.
func (r *ScoreRepo) Get(ctx domain.Context, applicationID string) (domain.ApplicationScore, error) {
	tracer := otel.Tracer("repo.scores")
	ctx, span := tracer.Start(ctx, "scores.Get")
	defer span.End()
	q := `SELECT application_id, score, explanation, ml_prediction, ml_confidence, fallback, scored_at
	FROM application_scores WHERE application_id=$1`
	var (
		s          domain.ApplicationScore
		prediction string
		confidence string
	)
	err := r.Pool.QueryRow(ctx, q, applicationID).Scan(&s.ApplicationID, &s.Result.Score, &s.Result.Explanation,
		&prediction, &confidence, &s.Fallback, &s.ScoredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ApplicationScore{}, fmt.Errorf("op=scores.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.ApplicationScore{}, fmt.Errorf("op=scores.Get: %w", err)
	}
	s.Result.MLPrediction = domain.ParsePrediction(prediction)
	s.Result.MLConfidence = domain.ParseConfidence(confidence)
	s.ScoredAt = s.ScoredAt.UTC()
	return s, nil
}
