package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/domain/mocks"
	"github.com/fairyhunter13/job-match-scorer/internal/usecase"
)

func newScoring() usecase.ScoringService {
	ext, pred := &mocks.MockCVExtractor{}, &mocks.MockPredictor{}
	ext.On("Extract", mock.Anything, mock.Anything, mock.Anything).Return(javaCV)
	pred.On("Predict", mock.Anything, mock.Anything, mock.Anything).Return(domain.FallbackPrediction())
	return usecase.NewScoringService(ext, pred, nil)
}

func TestApplicationService_Get(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	stored := domain.ApplicationScore{ApplicationID: "app-1", Result: domain.MatchResult{Score: 70}}

	repo := &mocks.MockScoreRepository{}
	repo.On("Get", mock.Anything, "app-1").Return(stored, nil)
	repo.On("Get", mock.Anything, "missing").Return(domain.ApplicationScore{}, domain.ErrNotFound)
	repo.On("Get", mock.Anything, "broken").Return(domain.ApplicationScore{}, errors.New("conn reset"))
	svc := usecase.NewApplicationService(newScoring(), repo, nil)

	got, err := svc.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestApplicationService_NoStore(t *testing.T) {
	t.Parallel()
	svc := usecase.NewApplicationService(newScoring(), nil, nil)
	_, err := svc.Score(context.Background(), fullRequest())
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	_, err = svc.Get(context.Background(), "app-1")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestApplicationService_RequestRescore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	req := fullRequest()

	t.Run("publishes event", func(t *testing.T) {
		q := &mocks.MockRescoreQueue{}
		q.On("EnqueueRescore", mock.Anything, mock.MatchedBy(func(ev domain.RescoreEvent) bool {
			return ev.ApplicationID == "app-1" && ev.EventID != "" && ev.Request == req
		})).Return("app-1", nil).Once()

		id, err := usecase.NewApplicationService(newScoring(), nil, q).RequestRescore(ctx, req)
		require.NoError(t, err)
		assert.Len(t, id, 36)
		q.AssertExpectations(t)
	})

	t.Run("queue error", func(t *testing.T) {
		q := &mocks.MockRescoreQueue{}
		q.On("EnqueueRescore", mock.Anything, mock.Anything).Return("", errors.New("broker down"))
		_, err := usecase.NewApplicationService(newScoring(), nil, q).RequestRescore(ctx, req)
		require.Error(t, err)
	})

	t.Run("no queue", func(t *testing.T) {
		_, err := usecase.NewApplicationService(newScoring(), nil, nil).RequestRescore(ctx, req)
		assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})

	t.Run("missing id", func(t *testing.T) {
		r := req
		r.Application.ID = ""
		_, err := usecase.NewApplicationService(newScoring(), nil, &mocks.MockRescoreQueue{}).RequestRescore(ctx, r)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestApplicationService_HandleRescore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	req := fullRequest()
	req.Application.ID = ""

	repo := &mocks.MockScoreRepository{}
	repo.On("Get", mock.Anything, "app-9").Return(domain.ApplicationScore{}, domain.ErrNotFound)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(s domain.ApplicationScore) bool { return s.ApplicationID == "app-9" })).Return(nil).Once()

	svc := usecase.NewApplicationService(newScoring(), repo, nil)
	require.NoError(t, svc.HandleRescore(ctx, domain.RescoreEvent{EventID: "e-1", ApplicationID: "app-9", Request: req}))
	repo.AssertExpectations(t)

	err := svc.HandleRescore(ctx, domain.RescoreEvent{EventID: "e-2"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestApplicationService_HandleRescore_RetriesOnlyTheWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	req := fullRequest()
	ev := domain.RescoreEvent{EventID: "e-3", ApplicationID: "app-1", Request: req}
	fast := usecase.PersistRetry{MaxElapsed: time.Second, Initial: time.Millisecond}

	t.Run("transient store failures", func(t *testing.T) {
		ext, pred := &mocks.MockCVExtractor{}, &mocks.MockPredictor{}
		ext.On("Extract", mock.Anything, mock.Anything, mock.Anything).Return(javaCV).Once()
		pred.On("Predict", mock.Anything, mock.Anything, mock.Anything).Return(domain.FallbackPrediction()).Once()

		repo := &mocks.MockScoreRepository{}
		repo.On("Get", mock.Anything, "app-1").Return(domain.ApplicationScore{}, domain.ErrNotFound)
		repo.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("conn reset")).Twice()
		repo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

		svc := usecase.NewApplicationService(usecase.NewScoringService(ext, pred, nil), repo, nil)
		svc.Retry = fast
		require.NoError(t, svc.HandleRescore(ctx, ev))

		ext.AssertNumberOfCalls(t, "Extract", 1)
		pred.AssertNumberOfCalls(t, "Predict", 1)
		repo.AssertNumberOfCalls(t, "Upsert", 3)
	})

	t.Run("invalid record is not retried", func(t *testing.T) {
		repo := &mocks.MockScoreRepository{}
		repo.On("Get", mock.Anything, "app-1").Return(domain.ApplicationScore{}, domain.ErrNotFound)
		repo.On("Upsert", mock.Anything, mock.Anything).Return(domain.ErrInvalidArgument)

		svc := usecase.NewApplicationService(newScoring(), repo, nil)
		svc.Retry = fast
		err := svc.HandleRescore(ctx, ev)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		repo.AssertNumberOfCalls(t, "Upsert", 1)
	})

	t.Run("no store", func(t *testing.T) {
		err := usecase.NewApplicationService(newScoring(), nil, nil).HandleRescore(ctx, ev)
		assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})
}
