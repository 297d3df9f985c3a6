package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketPerMinute(t *testing.T) {
	assert.Equal(t, Bucket{}, BucketPerMinute(0))
	b := BucketPerMinute(6)
	assert.Equal(t, int64(6), b.Capacity)
	assert.InDelta(t, 0.1, b.RefillRate, 1e-9)
}

func TestThrottle_NilAllows(t *testing.T) {
	var th *Throttle
	ok, wait, err := th.Allow(context.Background(), "app-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, wait)
	assert.Nil(t, NewThrottle(nil, BucketPerMinute(1)))
}

func TestThrottle_EmptyBucketAllows(t *testing.T) {
	_, rdb := newRedis(t)
	th := NewThrottle(rdb, Bucket{})
	ok, _, err := th.Allow(context.Background(), "app-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestThrottle_ExhaustsPerApplication(t *testing.T) {
	_, rdb := newRedis(t)
	th := NewThrottle(rdb, Bucket{Capacity: 2, RefillRate: 0.001})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, wait, err := th.Allow(ctx, "app-1")
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i)
		assert.Zero(t, wait)
	}
	ok, wait, err := th.Allow(ctx, "app-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _, err = th.Allow(ctx, "app-2")
	require.NoError(t, err)
	assert.True(t, ok, "buckets are per application")
}

func TestThrottle_FailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	th := NewThrottle(rdb, BucketPerMinute(1))
	mr.Close()
	ok, _, err := th.Allow(context.Background(), "app-1")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, RetryAfterSeconds(0))
	assert.Equal(t, 1, RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 3, RetryAfterSeconds(2100*time.Millisecond))
}
