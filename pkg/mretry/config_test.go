package mretry

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMetadataOutboxConfig(t *testing.T) {
	cfg := DefaultMetadataOutboxConfig()

	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultInitialBackoff, cfg.InitialBackoff)
	assert.Equal(t, DefaultMaxBackoff, cfg.MaxBackoff)
	assert.Equal(t, DefaultJitterFactor, cfg.JitterFactor)
}

func TestDefaultDLQConfig(t *testing.T) {
	cfg := DefaultDLQConfig()

	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DLQInitialBackoff, cfg.InitialBackoff)
	assert.Equal(t, DefaultMaxBackoff, cfg.MaxBackoff)
	assert.Equal(t, DefaultJitterFactor, cfg.JitterFactor)
}

func TestConfigChaining(t *testing.T) {
	cfg := DefaultMetadataOutboxConfig().
		WithMaxRetries(5).
		WithInitialBackoff(2 * time.Second).
		WithMaxBackoff(1 * time.Hour).
		WithJitterFactor(0.5)

	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.InitialBackoff)
	assert.Equal(t, 1*time.Hour, cfg.MaxBackoff)
	assert.Equal(t, 0.5, cfg.JitterFactor)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultMetadataOutboxConfig().Validate())
	assert.NoError(t, DefaultDLQConfig().Validate())

	err := DefaultMetadataOutboxConfig().WithMaxRetries(0).Validate()
	assert.ErrorContains(t, err, "MaxRetries")

	err = DefaultMetadataOutboxConfig().WithInitialBackoff(0).Validate()
	assert.ErrorContains(t, err, "InitialBackoff")

	err = DefaultMetadataOutboxConfig().WithMaxBackoff(0).Validate()
	assert.ErrorContains(t, err, "MaxBackoff")

	cfg := Config{MaxRetries: 10, InitialBackoff: 10 * time.Second, MaxBackoff: 5 * time.Second, JitterFactor: 0.25}
	assert.ErrorContains(t, cfg.Validate(), "must be >= InitialBackoff")

	err = DefaultMetadataOutboxConfig().WithJitterFactor(-0.1).Validate()
	assert.ErrorContains(t, err, "JitterFactor")

	err = DefaultMetadataOutboxConfig().WithJitterFactor(1.1).Validate()
	assert.ErrorContains(t, err, "JitterFactor")
}

func TestBackoffNeverExceedsMaxPlusJitter(t *testing.T) {
	cfg := Config{MaxRetries: 10, InitialBackoff: time.Second, MaxBackoff: 10 * time.Second, JitterFactor: 0.25}

	for attempt := 1; attempt <= 10; attempt++ {
		d := cfg.Backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Duration(float64(cfg.MaxBackoff)*(1+cfg.JitterFactor)))
	}
}

func TestSecureRandomFloat64Range(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := SecureRandomFloat64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	assert.Contains(t, SanitizeErrorMessage("contact user@example.com"), "[REDACTED]")
	assert.NotContains(t, SanitizeErrorMessage("contact user@example.com"), "user@example.com")
	assert.Contains(t, SanitizeErrorMessage(strings.Repeat("A", 600)), "...[truncated]")
}
