package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/certihub/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewPublicLimiter),
)

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Redis *redis.Client `optional:"true"`
}

// NewPublicLimiter guards the anonymous endpoints. Replicas share buckets
// when redis is configured.
func NewPublicLimiter(p Params) Limiter {
	cfg := Config{
		Rate:  float64(p.Cfg.PublicRateLimitPerMinute) / 60,
		Burst: p.Cfg.PublicRateLimitBurst,
	}
	if p.Redis != nil {
		return NewTokenBucket(p.Redis, cfg)
	}
	p.Log.Named("ratelimit").Info("public rate limit is per replica, REDIS_ADDR not set")
	return NewMemoryLimiter(cfg)
}
