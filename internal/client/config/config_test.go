package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "sqlite", c.DatabaseDriver)
	assert.Equal(t, "credits.db", c.DatabaseDSN)
	assert.Equal(t, StoreModeGRPC, c.StoreMode)
	assert.Equal(t, "127.0.0.1:50061", c.StoreEndpointAddr)
	assert.True(t, c.DemoFallback)
	assert.True(t, c.ValidationEnabled)
	assert.True(t, c.TrustedFallback)
	assert.Equal(t, 500*time.Millisecond, c.PollInterval)
	assert.Equal(t, 5*time.Second, c.PollBudget)
	assert.Equal(t, 24*time.Hour, c.ManualReconcileWindow)
	assert.Equal(t, 100, c.HistoryLimit)
	assert.Equal(t, 50, c.PurchaseLimit)
	assert.Equal(t, 720*time.Hour, c.ProcessedRetention)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "127.0.0.1:50061", cfg.StoreEndpointAddr)
	assert.Equal(t, 5*time.Second, cfg.PollBudget)
}
