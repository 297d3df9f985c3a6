package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObservableClientDefaults(t *testing.T) {
	oc := NewObservableClient(DependencyNLP, "http://nlp:5000")
	require.NotNil(t, oc.Metrics)
	assert.Equal(t, DependencyNLP, oc.Dependency)
	assert.Equal(t, "http://nlp:5000", oc.Endpoint)
}

func TestObservableClient_ExecuteWithMetrics(t *testing.T) {
	t.Run("success runs once", func(t *testing.T) {
		oc := NewObservableClient(DependencyML, "ml")
		calls := 0
		err := oc.ExecuteWithMetrics(context.Background(), "predict", func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.EqualValues(t, 1, oc.Metrics.TotalRequests)
		assert.EqualValues(t, 1, oc.Metrics.SuccessRequests)
	})

	t.Run("failure is returned and not retried", func(t *testing.T) {
		oc := NewObservableClient(DependencyML, "ml")
		calls := 0
		boom := &CallError{Kind: "status", Err: errors.New("status 500")}
		err := oc.ExecuteWithMetrics(context.Background(), "predict", func(ctx context.Context) error {
			calls++
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
		assert.EqualValues(t, 1, oc.Metrics.FailureRequests)
		assert.EqualValues(t, 1, oc.Metrics.ErrorCounts["status"])
	})

	t.Run("deadline counts as timeout", func(t *testing.T) {
		oc := NewObservableClient(DependencyNLP, "nlp")
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		err := oc.ExecuteWithMetrics(ctx, "extract", func(ctx context.Context) error {
			<-ctx.Done()
			return fmt.Errorf("wrapped: %w", ctx.Err())
		})
		require.Error(t, err)
		assert.EqualValues(t, 1, oc.Metrics.TimeoutRequests)
		assert.EqualValues(t, 0, oc.Metrics.FailureRequests)
	})
}

func TestConnectionMetrics_StatsAndReset(t *testing.T) {
	cm := NewConnectionMetrics(DependencyNLP, "nlp")
	cm.RecordRequest()
	cm.RecordSuccess(10 * time.Millisecond)
	cm.RecordRequest()
	cm.RecordSuccess(30 * time.Millisecond)
	cm.RecordRequest()
	cm.RecordFailure("")

	stats := cm.GetStats()
	assert.Equal(t, "nlp", stats["dependency"])
	assert.EqualValues(t, 3, stats["total_requests"])
	assert.Equal(t, "66.67%", stats["success_rate"])
	assert.Equal(t, (20 * time.Millisecond).String(), stats["avg_latency"])
	assert.Equal(t, (10 * time.Millisecond).String(), stats["min_latency"])
	assert.Equal(t, map[string]int64{"unknown": 1}, stats["error_counts"])

	cm.Reset()
	stats = cm.GetStats()
	assert.EqualValues(t, 0, stats["total_requests"])
	assert.Equal(t, "", stats["last_failure"])
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "decode", errorKind(fmt.Errorf("x: %w", &CallError{Kind: "decode", Err: errors.New("bad json")})))
	assert.Equal(t, "canceled", errorKind(context.Canceled))
	assert.Equal(t, "other", errorKind(errors.New("boom")))
}
