package nlp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/domain/mocks"
)

func TestNewCachedExtractor_NilCache(t *testing.T) {
	next := &mocks.MockCVExtractor{}
	assert.Same(t, next, NewCachedExtractor(next, nil))
}

func TestCachedExtractor(t *testing.T) {
	ctx := context.Background()
	resume := "JVBERi0="
	key := CacheKey(resume, domain.FileKindPDF)
	fresh := domain.CvData{Skills: []string{"go"}, ExperienceYears: 2, RawText: "go dev"}

	t.Run("hit skips extraction", func(t *testing.T) {
		next, cache := &mocks.MockCVExtractor{}, &mocks.MockExtractionCache{}
		cache.On("Get", ctx, key).Return(fresh, true, nil).Once()

		got := NewCachedExtractor(next, cache).Extract(ctx, resume, domain.FileKindPDF)
		assert.Equal(t, fresh, got)
		next.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
		cache.AssertExpectations(t)
	})

	t.Run("miss extracts and stores", func(t *testing.T) {
		next, cache := &mocks.MockCVExtractor{}, &mocks.MockExtractionCache{}
		cache.On("Get", ctx, key).Return(domain.CvData{}, false, nil).Once()
		next.On("Extract", ctx, resume, domain.FileKindPDF).Return(fresh).Once()
		cache.On("Set", ctx, key, fresh).Return(nil).Once()

		got := NewCachedExtractor(next, cache).Extract(ctx, resume, domain.FileKindPDF)
		assert.Equal(t, fresh, got)
		next.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("fallback is not stored", func(t *testing.T) {
		next, cache := &mocks.MockCVExtractor{}, &mocks.MockExtractionCache{}
		fb := SizeFallback(resume)
		cache.On("Get", ctx, key).Return(domain.CvData{}, false, nil).Once()
		next.On("Extract", ctx, resume, domain.FileKindPDF).Return(fb).Once()

		got := NewCachedExtractor(next, cache).Extract(ctx, resume, domain.FileKindPDF)
		assert.True(t, got.Fallback)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache errors degrade to extraction", func(t *testing.T) {
		next, cache := &mocks.MockCVExtractor{}, &mocks.MockExtractionCache{}
		cache.On("Get", ctx, key).Return(domain.CvData{}, false, errors.New("redis down")).Once()
		next.On("Extract", ctx, resume, domain.FileKindPDF).Return(fresh).Once()
		cache.On("Set", ctx, key, fresh).Return(errors.New("redis down")).Once()

		got := NewCachedExtractor(next, cache).Extract(ctx, resume, domain.FileKindPDF)
		assert.Equal(t, fresh, got)
	})
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("abc", domain.FileKindPDF)
	assert.Equal(t, a, CacheKey("abc", domain.FileKindPDF))
	assert.NotEqual(t, a, CacheKey("abc", domain.FileKindDOCX))
	assert.NotEqual(t, a, CacheKey("abd", domain.FileKindPDF))
	assert.Len(t, a, len("cv:")+64)
}
