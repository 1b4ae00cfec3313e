package ratelimit

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Config is a token bucket: Rate tokens per second up to Burst.
type Config struct {
	Rate  float64
	Burst int
}

func DefaultConfig() Config {
	return Config{Rate: 1, Burst: 20}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Rate <= 0 {
		c.Rate = defaults.Rate
	}
	if c.Burst <= 0 {
		c.Burst = defaults.Burst
	}
	return c
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// MemoryLimiter keeps one bucket per key in process. Idle buckets expire so
// the key space stays bounded.
type MemoryLimiter struct {
	cfg     Config
	buckets *gocache.Cache
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	cfg = cfg.withDefaults()
	idle := bucketTTL(cfg.Rate, cfg.Burst)
	return &MemoryLimiter{
		cfg:     cfg,
		buckets: gocache.New(idle, 2*idle),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	limiter := m.bucket(key)
	reservation := limiter.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return Result{
			Allowed:    false,
			Limit:      m.cfg.Burst,
			RetryAfter: delay,
		}, nil
	}
	return Result{
		Allowed:   true,
		Limit:     m.cfg.Burst,
		Remaining: int(limiter.Tokens()),
	}, nil
}

func (m *MemoryLimiter) bucket(key string) *rate.Limiter {
	if existing, ok := m.buckets.Get(key); ok {
		m.buckets.SetDefault(key, existing)
		return existing.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Limit(m.cfg.Rate), m.cfg.Burst)
	if err := m.buckets.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		if existing, ok := m.buckets.Get(key); ok {
			return existing.(*rate.Limiter)
		}
	}
	return limiter
}
