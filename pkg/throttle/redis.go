package throttle

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)

// Redis hash fields of a stored bucket.
const (
	redisFieldTokens = "tokens"
	redisFieldTS     = "ts"
)

// RedisStore keeps buckets in Redis so that every process calling MWS for the
// same seller account draws from the same quota. Each bucket is a hash with
// the fields "tokens" and "ts" (last refill, unix milliseconds). Keys expire
// once the bucket would have refilled completely.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{client: client}
}

// takeScript refills and takes one token atomically.
//
// KEYS[1] = bucket key
// ARGV[1] = max burst
// ARGV[2] = restore rate (tokens per second)
// ARGV[3] = now (unix ms)
// ARGV[4] = ttl (seconds)
//
// Returns {allowed, wait_ms, tokens}.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local burst = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local vals = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(vals[1])
local ts = tonumber(vals[2])
if tokens == nil or ts == nil then
    tokens = burst
    ts = now
end
if tokens > burst then
    tokens = burst
end

if now > ts then
    tokens = math.min(burst, tokens + (now - ts) / 1000 * rate)
    ts = now
end

local allowed = 0
local wait = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
else
    wait = math.ceil((1 - tokens) / rate * 1000)
end

redis.call("HSET", key, "tokens", tostring(tokens), "ts", tostring(ts))
if ttl > 0 then
    redis.call("EXPIRE", key, ttl)
end
return {allowed, wait, tostring(tokens)}
`)

// Take deducts one token from the bucket under key if one is available.
func (r *RedisStore) Take(ctx context.Context, key string, limit Limit, now time.Time) (TakeResult, error) {
	ttl := int64(math.Ceil(limit.FullAfter().Seconds())) + 1
	res, err := takeScript.Run(ctx, r.client, []string{key},
		limit.MaxBurst,
		strconv.FormatFloat(limit.RestoreRate, 'f', -1, 64),
		now.UnixMilli(),
		ttl,
	).Slice()
	if err != nil {
		return TakeResult{}, fmt.Errorf("redis take: %w", err)
	}
	if len(res) != 3 {
		return TakeResult{}, fmt.Errorf("redis take: unexpected reply length %d", len(res))
	}

	allowed, _ := res[0].(int64)
	waitMs, _ := res[1].(int64)
	tokensStr, _ := res[2].(string)
	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		return TakeResult{}, fmt.Errorf("parse tokens %q: %w", tokensStr, err)
	}

	return TakeResult{
		Allowed:   allowed == 1,
		Wait:      time.Duration(waitMs) * time.Millisecond,
		Remaining: tokens,
	}, nil
}

// Get returns the refilled state of the bucket under key without deducting.
func (r *RedisStore) Get(ctx context.Context, key string, limit Limit, now time.Time) (BucketState, error) {
	vals, err := r.client.HMGet(ctx, key, redisFieldTokens, redisFieldTS).Result()
	if err != nil {
		return BucketState{}, fmt.Errorf("redis hmget: %w", err)
	}

	state := newBucketState(limit, now)
	tokensStr, okTokens := vals[0].(string)
	tsStr, okTS := vals[1].(string)
	if !okTokens || !okTS {
		return state, nil
	}

	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		return BucketState{}, fmt.Errorf("parse tokens %q: %w", tokensStr, err)
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return BucketState{}, fmt.Errorf("parse ts %q: %w", tsStr, err)
	}

	state.Tokens = math.Min(tokens, float64(limit.MaxBurst))
	state.LastRefill = time.UnixMilli(ts)
	state.Refill(now)
	return state, nil
}

// Reset removes the bucket under key.
func (r *RedisStore) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
