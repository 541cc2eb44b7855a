// Package aibudget gates model calls per user with a Redis-backed token
// bucket. The bucket is advisory soft state: on Redis errors the limiter
// fails open so a cache outage never blocks interview practice, and callers
// answer a denied call with their deterministic fallback rather than an
// error.
package aibudget

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config shapes every user's bucket.
type Config struct {
	Capacity     int64
	RefillPerMin int
}

// refillRate converts the per-minute refill into tokens per second.
func (c Config) refillRate() float64 {
	if c.RefillPerMin <= 0 {
		return 0
	}
	return float64(c.RefillPerMin) / 60.0
}

// RedisBudget implements domain.AIBudget on a Redis token bucket evaluated
// atomically in Lua.
type RedisBudget struct {
	redis  *redis.Client
	cfg    Config
	script *redis.Script
}

// New constructs a RedisBudget. A nil client disables limiting entirely.
func New(rdb *redis.Client, cfg Config) *RedisBudget {
	if rdb == nil {
		return nil
	}
	return &RedisBudget{
		redis:  rdb,
		cfg:    cfg,
		script: redis.NewScript(luaTokenBucketScript),
	}
}

const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] ~= false and data[1] ~= nil then
  tokens = tonumber(data[1])
end
if data[2] ~= false and data[2] ~= nil then
  last_refill = tonumber(data[2])
end

if last_refill == nil then
  last_refill = now
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end

tokens = math.min(capacity, tokens + delta * refill_rate)
last_refill = now

local allowed = 0
local retry_after = 0

if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  local shortage = cost - tokens
  if refill_rate > 0 then
    retry_after = shortage / refill_rate
  else
    retry_after = 0
  end
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)

return { allowed, tokens, last_refill, retry_after }
`

// Allow reports whether userID may spend one model call now.
func (b *RedisBudget) Allow(ctx context.Context, userID string) (bool, error) {
	allowed, _, err := b.AllowN(ctx, userID, 1)
	return allowed, err
}

// AllowN spends cost tokens from the user's bucket and reports the wait
// until enough tokens refill when denied.
func (b *RedisBudget) AllowN(ctx context.Context, userID string, cost int64) (bool, time.Duration, error) {
	if b == nil || b.redis == nil {
		return true, 0, nil
	}
	if b.cfg.Capacity <= 0 || b.cfg.refillRate() <= 0 {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(time.Now().UnixNano()) / 1e9
	key := "aibudget:" + userID

	res, err := b.script.Run(ctx, b.redis, []string{key}, b.cfg.Capacity, b.cfg.refillRate(), nowSec, cost).Result()
	if err != nil {
		slog.Error("ai budget script error", slog.String("user_id", userID), slog.Any("error", err))
		// Fail open on Redis errors to avoid hard outages.
		return true, 0, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 4 {
		slog.Error("ai budget unexpected script result", slog.String("user_id", userID), slog.Any("result", res))
		return true, 0, nil
	}

	allowed := toInt64(vals[0]) == 1
	retryAfter := time.Duration(toFloat64(vals[3]) * float64(time.Second))
	return allowed, retryAfter, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return math.NaN()
	}
}
