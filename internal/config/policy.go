package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PolicyConfig holds operational rules that may change without a redeploy.
type PolicyConfig struct {
	EnrollmentWindowDays           int           `mapstructure:"enrollmentWindowDays"`
	RequireCompletedForCertificate bool          `mapstructure:"requireCompletedForCertificate"`
	SchedulerInterval              time.Duration `mapstructure:"schedulerInterval"`
	BackfillBatchSize              int           `mapstructure:"backfillBatchSize"`
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		EnrollmentWindowDays:           7,
		RequireCompletedForCertificate: false,
		SchedulerInterval:              time.Minute,
		BackfillBatchSize:              100,
	}
}

// EnrollmentWindow is the time a learner has between start and due date.
func (p PolicyConfig) EnrollmentWindow() time.Duration {
	return time.Duration(p.EnrollmentWindowDays) * 24 * time.Hour
}

type PolicyConfigHolder struct {
	current atomic.Value // holds PolicyConfig
}

// NewStaticPolicyHolder returns a holder that never reloads, used by tests and tools.
func NewStaticPolicyHolder(cfg PolicyConfig) *PolicyConfigHolder {
	holder := &PolicyConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPolicyConfigHolder() (*PolicyConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/certihub")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CERTIHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicyConfig()
	v.SetDefault("policy.enrollmentWindowDays", defaults.EnrollmentWindowDays)
	v.SetDefault("policy.requireCompletedForCertificate", getenvBool("CERT_REQUIRE_COMPLETED", defaults.RequireCompletedForCertificate))
	v.SetDefault("policy.schedulerInterval", defaults.SchedulerInterval)
	v.SetDefault("policy.backfillBatchSize", defaults.BackfillBatchSize)

	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		found = false
	}

	var cfg PolicyConfig
	if err := v.UnmarshalKey("policy", &cfg); err != nil {
		return nil, err
	}
	if err := validatePolicyConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(cfg)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PolicyConfig
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[policy-config] reload failed: %v", err)
			return
		}
		if err := validatePolicyConfig(updated); err != nil {
			log.Printf("[policy-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Get returns the current policy. A nil holder yields the defaults.
func (h *PolicyConfigHolder) Get() PolicyConfig {
	if h == nil {
		return DefaultPolicyConfig()
	}
	cfg, ok := h.current.Load().(PolicyConfig)
	if !ok {
		return DefaultPolicyConfig()
	}
	return cfg
}

func validatePolicyConfig(cfg PolicyConfig) error {
	if cfg.EnrollmentWindowDays <= 0 {
		return errors.New("policy.enrollmentWindowDays must be positive")
	}
	if cfg.SchedulerInterval <= 0 {
		return errors.New("policy.schedulerInterval must be positive")
	}
	if cfg.BackfillBatchSize <= 0 {
		return errors.New("policy.backfillBatchSize must be positive")
	}
	return nil
}
