package scheduler

import (
	"time"

	"github.com/smallbiznis/certihub/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	JobTimeout  time.Duration
	LockTTL     time.Duration
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		BatchSize:   100,
		JobTimeout:  30 * time.Second,
		LockTTL:     2 * time.Minute,
	}
}

// ProvideConfig derives the scheduler settings from the policy file so the
// interval and batch size follow policy reloads at startup.
func ProvideConfig(policy *config.PolicyConfigHolder) Config {
	current := policy.Get()
	return Config{
		RunInterval: current.SchedulerInterval,
		BatchSize:   current.BackfillBatchSize,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
