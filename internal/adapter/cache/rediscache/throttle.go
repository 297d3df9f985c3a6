package rediscache

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bucket is a token bucket: Capacity tokens refilled at RefillRate per second.
type Bucket struct {
	Capacity   int64
	RefillRate float64
}

// BucketPerMinute builds a bucket allowing perMinute requests per minute.
func BucketPerMinute(perMinute int) Bucket {
	if perMinute <= 0 {
		return Bucket{}
	}
	return Bucket{Capacity: int64(perMinute), RefillRate: float64(perMinute) / 60.0}
}

// Throttle limits rescore requests per application with a token bucket
// evaluated atomically inside Redis. A nil Throttle or one with an empty
// bucket allows everything.
type Throttle struct {
	rdb    *redis.Client
	bucket Bucket
	prefix string
	script *redis.Script
}

// NewThrottle returns nil when rdb is nil.
func NewThrottle(rdb *redis.Client, b Bucket) *Throttle {
	if rdb == nil {
		return nil
	}
	return &Throttle{rdb: rdb, bucket: b, prefix: "rescore:throttle:", script: redis.NewScript(tokenBucketScript)}
}

// Returns {allowed, retry_after_ms}. Redis truncates Lua numbers to integers,
// so the wait is reported in whole milliseconds rounded up.
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local tokens = capacity
local last = now
local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then tokens = tonumber(data[1]) end
if data[2] then last = tonumber(data[2]) end

local delta = now - last
if delta < 0 then delta = 0 end
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  wait_ms = math.ceil((1 - tokens) / refill_rate * 1000)
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("EXPIRE", key, math.ceil(capacity / refill_rate) + 1)
return { allowed, wait_ms }
`

// Allow consumes one token for applicationID. Redis failures fail open and are returned.
func (t *Throttle) Allow(ctx context.Context, applicationID string) (bool, time.Duration, error) {
	if t == nil || t.bucket.Capacity <= 0 || t.bucket.RefillRate <= 0 {
		return true, 0, nil
	}
	now := float64(time.Now().UnixNano()) / 1e9
	res, err := t.script.Run(ctx, t.rdb, []string{t.prefix + applicationID},
		t.bucket.Capacity, t.bucket.RefillRate, now).Int64Slice()
	if err != nil {
		slog.Error("rescore throttle script failed", slog.String("application_id", applicationID), slog.Any("error", err))
		return true, 0, err
	}
	if len(res) < 2 {
		slog.Error("rescore throttle unexpected result", slog.Any("result", res))
		return true, 0, nil
	}
	wait := time.Duration(res[1]) * time.Millisecond
	return res[0] == 1, wait, nil
}

// RetryAfterSeconds renders a wait for the Retry-After header, at least one second.
func RetryAfterSeconds(d time.Duration) int {
	return int(math.Max(1, math.Ceil(d.Seconds())))
}
