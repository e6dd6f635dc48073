package envcfg_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lucasschwertz/procurement-core/pkg/envcfg"
)

type testConfig struct {
	Name     string        `env:"TEST_ENVCFG_NAME" envDefault:"fallback"`
	Enabled  bool          `env:"TEST_ENVCFG_ENABLED"`
	Attempts int           `env:"TEST_ENVCFG_ATTEMPTS" envDefault:"3"`
	Backoff  time.Duration `env:"TEST_ENVCFG_BACKOFF" envDefault:"1s"`
	Scopes   []string      `env:"TEST_ENVCFG_SCOPES"`
}

func TestLoadUsesEnvAndDefaults(t *testing.T) {
	t.Setenv("TEST_ENVCFG_ENABLED", "true")
	t.Setenv("TEST_ENVCFG_SCOPES", "supplier, purchase_order")

	var cfg testConfig

	require.NoError(t, envcfg.Load(&cfg))

	assert.Equal(t, "fallback", cfg.Name)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.Attempts)
	assert.Equal(t, time.Second, cfg.Backoff)
	assert.Equal(t, []string{"supplier", "purchase_order"}, cfg.Scopes)
}

func TestLoadRejectsNonPointer(t *testing.T) {
	err := envcfg.Load(testConfig{})
	assert.Error(t, err)
}
