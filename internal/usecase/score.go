// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	obsadapter "github.com/fairyhunter13/job-match-scorer/internal/adapter/observability"
	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/observability"
	"github.com/fairyhunter13/job-match-scorer/internal/scoring"
)

// Blend modes reported in logs and metrics.
const (
	ModeBlended     = "blended"
	ModeLocal       = "local"
	ModeSafeDefault = "safe_default"
)

// SafeDefaultScore is reported when scoring itself fails.
const SafeDefaultScore = 50.0

// ScoreOutcome is a MatchResult together with how it was produced.
type ScoreOutcome struct {
	Result             domain.MatchResult
	Breakdown          scoring.Breakdown
	Mode               string
	MLWeight           float64
	ExtractionFallback bool
}

// ScoringService is the top-level scoring entry point: it extracts the
// resume, scores it locally, optionally blends in the ML prediction and
// renders the explanation. Scoring never fails; unexpected errors produce
// the safe default result.
type ScoringService struct {
	Extractor domain.CVExtractor
	Predictor domain.Predictor
	Scorer    *scoring.Scorer
}

// NewScoringService constructs a ScoringService. A nil scorer uses the default alias table.
func NewScoringService(e domain.CVExtractor, p domain.Predictor, s *scoring.Scorer) ScoringService {
	if s == nil {
		s = scoring.NewScorer(nil)
	}
	return ScoringService{Extractor: e, Predictor: p, Scorer: s}
}

// Score returns the MatchResult for one application against one job offer.
func (s ScoringService) Score(ctx domain.Context, req domain.ScoreRequest) domain.MatchResult {
	return s.Evaluate(ctx, req).Result
}

// SafeDefault is the neutral result used whenever scoring cannot complete.
func SafeDefault() domain.MatchResult {
	return domain.MatchResult{
		Score:        SafeDefaultScore,
		Explanation:  scoring.FallbackExplanation,
		MLPrediction: domain.PredictionUnknown,
		MLConfidence: domain.ConfidenceLow,
	}
}

// Evaluate scores the request and reports how the result was produced.
func (s ScoringService) Evaluate(ctx domain.Context, req domain.ScoreRequest) (out ScoreOutcome) {
	tracer := otel.Tracer("usecase.scoring")
	ctx, span := tracer.Start(ctx, "ScoringService.Evaluate")
	defer span.End()
	lg := observability.LoggerWithRequestID(ctx).With(slog.String("application_id", req.Application.ID))

	defer func() {
		if r := recover(); r != nil {
			lg.Error("scoring panicked, using safe default", slog.Any("panic", r))
			span.SetAttributes(attribute.String("scoring.mode", ModeSafeDefault))
			out = ScoreOutcome{Result: SafeDefault(), Mode: ModeSafeDefault}
			obsadapter.ObserveScoring(ModeSafeDefault, SafeDefaultScore, nil)
		}
	}()

	out, err := s.evaluate(ctx, req)
	if err != nil {
		lg.Error("scoring failed, using safe default", slog.Any("error", err))
		out = ScoreOutcome{Result: SafeDefault(), Mode: ModeSafeDefault}
	}

	b := out.Breakdown
	span.SetAttributes(
		attribute.String("scoring.mode", out.Mode),
		attribute.Float64("scoring.score", out.Result.Score),
	)
	lg.Info("application scored",
		slog.String("mode", out.Mode),
		slog.Float64("score", out.Result.Score),
		slog.Float64("skills", b.Skills.Score),
		slog.Int("skills_matched", b.Skills.Matched),
		slog.Int("skills_total", b.Skills.Total),
		slog.Float64("keywords", b.Keywords.Score),
		slog.Float64("experience", b.Experience),
		slog.Float64("completeness", b.Completeness),
		slog.Float64("ml_weight", out.MLWeight),
		slog.String("ml_prediction", string(out.Result.MLPrediction)),
		slog.String("ml_confidence", string(out.Result.MLConfidence)),
		slog.Bool("extraction_fallback", out.ExtractionFallback))
	var components map[string]float64
	if out.Mode != ModeSafeDefault {
		components = map[string]float64{
			"skills":       b.Skills.Score,
			"keywords":     b.Keywords.Score,
			"experience":   b.Experience,
			"completeness": b.Completeness,
		}
	}
	obsadapter.ObserveScoring(out.Mode, out.Result.Score, components)
	return out
}

func (s ScoringService) evaluate(ctx context.Context, req domain.ScoreRequest) (ScoreOutcome, error) {
	if s.Extractor == nil || s.Predictor == nil {
		return ScoreOutcome{}, fmt.Errorf("op=usecase.Score: %w: scoring service not wired", domain.ErrInternal)
	}
	scorer := s.Scorer
	if scorer == nil {
		scorer = scoring.NewScorer(nil)
	}
	app, job := req.Application, req.JobOffer

	cv := s.Extractor.Extract(ctx, app.Resume, app.ResumeKind)
	b := scorer.Evaluate(cv, scoring.Signal(job), app)
	local := b.Local()

	pred := s.Predictor.Predict(ctx, cv, scoring.MLJobView(job))
	final, w := scoring.Blend(local, pred)
	if math.IsNaN(final) || math.IsInf(final, 0) {
		return ScoreOutcome{}, fmt.Errorf("op=usecase.Score: %w: non-finite score", domain.ErrInternal)
	}

	in := scoring.ExplainInput{Breakdown: b, Final: final}
	mode := ModeLocal
	if pred.Available {
		in.ML = &pred
		mode = ModeBlended
	}
	return ScoreOutcome{
		Result: domain.MatchResult{
			Score:        scoring.Percent(final),
			Explanation:  scoring.Explain(in),
			MLPrediction: pred.Prediction,
			MLConfidence: pred.Confidence,
		},
		Breakdown:          b,
		Mode:               mode,
		MLWeight:           w,
		ExtractionFallback: cv.Fallback,
	}, nil
}

// ScoreAndPersist scores the application and stores the result on its record.
// Re-scoring with unchanged inputs and remote answers leaves the stored row untouched.
func (s ScoringService) ScoreAndPersist(ctx domain.Context, repo domain.ScoreRepository, req domain.ScoreRequest) (domain.ApplicationScore, error) {
	rec, err := s.Record(ctx, req)
	if err != nil {
		return domain.ApplicationScore{}, err
	}
	stored, err := Persist(ctx, repo, rec)
	if err != nil {
		return domain.ApplicationScore{}, fmt.Errorf("op=usecase.ScoreAndPersist: %w", err)
	}
	return stored, nil
}

// Record scores the application into the record that would be stored for it.
// It calls each remote service at most once.
func (s ScoringService) Record(ctx domain.Context, req domain.ScoreRequest) (domain.ApplicationScore, error) {
	id := req.Application.ID
	if id == "" {
		return domain.ApplicationScore{}, fmt.Errorf("%w: application id required", domain.ErrInvalidArgument)
	}
	out := s.Evaluate(ctx, req)
	return domain.ApplicationScore{
		ApplicationID: id,
		Result:        out.Result,
		Fallback:      out.Mode == ModeSafeDefault || out.ExtractionFallback,
		ScoredAt:      time.Now().UTC(),
	}, nil
}

// Persist upserts rec unless the stored row already holds the same result,
// in which case the stored row is returned.
func Persist(ctx domain.Context, repo domain.ScoreRepository, rec domain.ApplicationScore) (domain.ApplicationScore, error) {
	if prev, err := repo.Get(ctx, rec.ApplicationID); err == nil && prev.Result == rec.Result && prev.Fallback == rec.Fallback {
		return prev, nil
	}
	if err := repo.Upsert(ctx, rec); err != nil {
		return domain.ApplicationScore{}, err
	}
	return rec, nil
}
