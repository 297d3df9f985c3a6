package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	obsadapter "github.com/fairyhunter13/job-match-scorer/internal/adapter/observability"
	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/observability"
)

const rescoreJobType = "rescore"

// PersistRetry bounds how long a re-scored record keeps being written back
// after transient store failures. Zero values select one minute and 500ms.
type PersistRetry struct {
	MaxElapsed time.Duration
	Initial    time.Duration
}

func (p PersistRetry) backOff() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime, expo.InitialInterval = time.Minute, 500*time.Millisecond
	if p.MaxElapsed > 0 {
		expo.MaxElapsedTime = p.MaxElapsed
	}
	if p.Initial > 0 {
		expo.InitialInterval = p.Initial
	}
	return expo
}

// ApplicationService scores applications on their persisted record and
// re-scores edited applications asynchronously.
type ApplicationService struct {
	Scoring ScoringService
	Scores  domain.ScoreRepository
	Queue   domain.RescoreQueue
	Retry   PersistRetry
}

// NewApplicationService constructs an ApplicationService. q may be nil when
// no broker is configured; RequestRescore then reports the queue as unavailable.
func NewApplicationService(s ScoringService, r domain.ScoreRepository, q domain.RescoreQueue) ApplicationService {
	return ApplicationService{Scoring: s, Scores: r, Queue: q}
}

// Score scores the application synchronously and persists the result.
func (s ApplicationService) Score(ctx domain.Context, req domain.ScoreRequest) (domain.ApplicationScore, error) {
	if s.Scores == nil {
		return domain.ApplicationScore{}, fmt.Errorf("op=usecase.Score: %w: score store not configured", domain.ErrUpstreamUnavailable)
	}
	return s.Scoring.ScoreAndPersist(ctx, s.Scores, req)
}

// Get returns the stored score of an application.
func (s ApplicationService) Get(ctx domain.Context, applicationID string) (domain.ApplicationScore, error) {
	if applicationID == "" {
		return domain.ApplicationScore{}, fmt.Errorf("%w: application id required", domain.ErrInvalidArgument)
	}
	if s.Scores == nil {
		return domain.ApplicationScore{}, fmt.Errorf("op=usecase.Get: %w: score store not configured", domain.ErrUpstreamUnavailable)
	}
	rec, err := s.Scores.Get(ctx, applicationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ApplicationScore{}, fmt.Errorf("%w: no score for application %s", domain.ErrNotFound, applicationID)
		}
		return domain.ApplicationScore{}, fmt.Errorf("op=usecase.Get: %w", err)
	}
	return rec, nil
}

// RequestRescore publishes a re-scoring request and returns its event id.
func (s ApplicationService) RequestRescore(ctx domain.Context, req domain.ScoreRequest) (string, error) {
	if req.Application.ID == "" {
		return "", fmt.Errorf("%w: application id required", domain.ErrInvalidArgument)
	}
	if s.Queue == nil {
		return "", fmt.Errorf("op=usecase.RequestRescore: %w: rescore queue not configured", domain.ErrUpstreamUnavailable)
	}
	ev := domain.RescoreEvent{EventID: uuid.NewString(), ApplicationID: req.Application.ID, Request: req}
	if _, err := s.Queue.EnqueueRescore(ctx, ev); err != nil {
		return "", fmt.Errorf("op=usecase.RequestRescore: %w", err)
	}
	obsadapter.EnqueueJob(rescoreJobType)
	observability.LoggerWithRequestID(ctx).Info("rescore requested",
		slog.String("application_id", ev.ApplicationID), slog.String("event_id", ev.EventID))
	return ev.EventID, nil
}

// HandleRescore processes one re-scoring event from the queue. The
// application is scored once; only writing the result back is retried.
func (s ApplicationService) HandleRescore(ctx domain.Context, ev domain.RescoreEvent) error {
	if ev.ApplicationID == "" {
		return fmt.Errorf("%w: rescore event without application id", domain.ErrInvalidArgument)
	}
	if s.Scores == nil {
		return fmt.Errorf("op=usecase.HandleRescore: %w: score store not configured", domain.ErrUpstreamUnavailable)
	}
	ev.Request.Application.ID = ev.ApplicationID
	lg := observability.LoggerWithRequestID(ctx).With(
		slog.String("application_id", ev.ApplicationID),
		slog.String("event_id", ev.EventID))

	obsadapter.StartProcessingJob(rescoreJobType)
	rec, err := s.Scoring.Record(ctx, ev.Request)
	if err != nil {
		obsadapter.FailJob(rescoreJobType)
		return err
	}

	op := func() error {
		stored, err := Persist(ctx, s.Scores, rec)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				return backoff.Permanent(err)
			}
			return err
		}
		rec = stored
		return nil
	}
	notify := func(err error, wait time.Duration) {
		lg.Warn("storing rescored application failed, retrying", slog.Duration("wait", wait), slog.Any("error", err))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(s.Retry.backOff(), ctx), notify); err != nil {
		obsadapter.FailJob(rescoreJobType)
		return fmt.Errorf("op=usecase.HandleRescore: %w", err)
	}
	obsadapter.CompleteJob(rescoreJobType)
	lg.Info("application rescored", slog.Float64("score", rec.Result.Score))
	return nil
}
