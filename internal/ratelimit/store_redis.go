package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the sorted set to the window, then admits cost members
// when there is room. Scores are unix milliseconds. Returns {allowed, count, resetAtMs}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count + cost <= limit then
	for i = 1, cost do
		redis.call('ZADD', key, now, ARGV[5] .. ':' .. i)
	end
	redis.call('PEXPIRE', key, window)
	count = count + cost
	allowed = 1
end

local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
	reset = tonumber(oldest[2]) + window
end
return {allowed, count, reset}
`)

// Redis is a Store shared by every instance, so limits hold across the fleet.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	now       func() time.Time
}

func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	return &Redis{client: client, namespace: namespace, now: time.Now}
}

func (r *Redis) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (Result, error) {
	now := r.now()
	raw, err := slidingWindowScript.Run(ctx, r.client,
		[]string{r.namespace + key},
		now.UnixMilli(), window.Milliseconds(), limit, cost, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("rate limit script returned %d values", len(raw))
	}
	res := Result{
		Allowed: raw[0] == 1,
		Limit:   limit,
		ResetAt: time.UnixMilli(raw[2]),
	}
	if res.Allowed {
		res.Remaining = limit - int(raw[1])
	}
	return res, nil
}
