// Package mocks holds testify mocks of the domain ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// MockCVExtractor mocks domain.CVExtractor.
type MockCVExtractor struct{ mock.Mock }

func (m *MockCVExtractor) Extract(ctx context.Context, resume string, kind domain.FileKind) domain.CvData {
	args := m.Called(ctx, resume, kind)
	return args.Get(0).(domain.CvData)
}

// MockPredictor mocks domain.Predictor.
type MockPredictor struct{ mock.Mock }

func (m *MockPredictor) Predict(ctx context.Context, cv domain.CvData, job domain.MLJobData) domain.MLPrediction {
	args := m.Called(ctx, cv, job)
	return args.Get(0).(domain.MLPrediction)
}

func (m *MockPredictor) Available() bool {
	return m.Called().Bool(0)
}

// MockScoreRepository mocks domain.ScoreRepository.
type MockScoreRepository struct{ mock.Mock }

func (m *MockScoreRepository) Upsert(ctx context.Context, s domain.ApplicationScore) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockScoreRepository) Get(ctx context.Context, applicationID string) (domain.ApplicationScore, error) {
	args := m.Called(ctx, applicationID)
	return args.Get(0).(domain.ApplicationScore), args.Error(1)
}

// MockRescoreQueue mocks domain.RescoreQueue.
type MockRescoreQueue struct{ mock.Mock }

func (m *MockRescoreQueue) EnqueueRescore(ctx context.Context, ev domain.RescoreEvent) (string, error) {
	args := m.Called(ctx, ev)
	return args.String(0), args.Error(1)
}

// MockExtractionCache mocks domain.ExtractionCache.
type MockExtractionCache struct{ mock.Mock }

func (m *MockExtractionCache) Get(ctx context.Context, key string) (domain.CvData, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.CvData), args.Bool(1), args.Error(2)
}

func (m *MockExtractionCache) Set(ctx context.Context, key string, cv domain.CvData) error {
	return m.Called(ctx, key, cv).Error(0)
}

var (
	_ domain.CVExtractor     = (*MockCVExtractor)(nil)
	_ domain.Predictor       = (*MockPredictor)(nil)
	_ domain.ScoreRepository = (*MockScoreRepository)(nil)
	_ domain.RescoreQueue    = (*MockRescoreQueue)(nil)
	_ domain.ExtractionCache = (*MockExtractionCache)(nil)
)
