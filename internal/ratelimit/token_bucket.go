package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
  ts = now
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  local refill = (delta / 1000) * rate
  tokens = math.min(burst, tokens + refill)
  ts = now
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens)}
`

const keyPrefix = "certihub:ratelimit:"

// TokenBucket is a limiter shared by every replica through redis.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
	cfg    Config
}

func NewTokenBucket(client *redis.Client, cfg Config) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
		cfg:    cfg.withDefaults(),
	}
}

func (t *TokenBucket) Allow(ctx context.Context, key string) (Result, error) {
	if t == nil || t.client == nil {
		return Result{}, errors.New("rate limiter not configured")
	}
	if key == "" {
		return Result{}, errors.New("rate limiter key is empty")
	}

	ttl := bucketTTL(t.cfg.Rate, t.cfg.Burst)
	res, err := t.script.Run(
		ctx,
		t.client,
		[]string{keyPrefix + key},
		t.cfg.Rate,
		t.cfg.Burst,
		int64(ttl/time.Millisecond),
	).Slice()
	if err != nil {
		return Result{}, err
	}
	if len(res) < 2 {
		return Result{}, errors.New("invalid rate limit script response")
	}

	allowed := toInt(res[0]) == 1
	remaining := toFloat(res[1])

	result := Result{
		Allowed:   allowed,
		Limit:     t.cfg.Burst,
		Remaining: int(remaining),
	}
	if !allowed {
		result.RetryAfter = refillWait(remaining, t.cfg.Rate)
	}
	return result, nil
}

func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

// refillWait is the time until one token is available again.
func refillWait(tokens, rate float64) time.Duration {
	needed := 1.0 - tokens
	if needed <= 0 || rate <= 0 {
		return 0
	}
	return time.Duration(needed / rate * float64(time.Second))
}

func toInt(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}

// lua numbers are truncated to integers on the way out, so tokens travel as
// a string.
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
