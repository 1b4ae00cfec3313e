package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicyConfig(t *testing.T) {
	cfg := DefaultPolicyConfig()

	assert.NoError(t, validatePolicyConfig(cfg))
	assert.Equal(t, 7*24*time.Hour, cfg.EnrollmentWindow())
	assert.False(t, cfg.RequireCompletedForCertificate)
}

func TestValidatePolicyConfigRejectsZeroWindow(t *testing.T) {
	cfg := DefaultPolicyConfig()
	cfg.EnrollmentWindowDays = 0

	assert.Error(t, validatePolicyConfig(cfg))
}

func TestNilHolderReturnsDefaults(t *testing.T) {
	var holder *PolicyConfigHolder

	assert.Equal(t, DefaultPolicyConfig(), holder.Get())
}

func TestStaticHolder(t *testing.T) {
	cfg := DefaultPolicyConfig()
	cfg.RequireCompletedForCertificate = true

	holder := NewStaticPolicyHolder(cfg)

	assert.True(t, holder.Get().RequireCompletedForCertificate)
}

func TestGetenvBool(t *testing.T) {
	t.Setenv("CERTIHUB_TEST_FLAG", "yes")
	assert.True(t, getenvBool("CERTIHUB_TEST_FLAG", false))

	t.Setenv("CERTIHUB_TEST_FLAG", "garbage")
	assert.False(t, getenvBool("CERTIHUB_TEST_FLAG", false))
}
