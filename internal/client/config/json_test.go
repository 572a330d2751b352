package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"store_endpoint_addr": "gateway.example:9000",
		"poll_budget":         "10s",
		"validation_enabled":  false,
		"validation_retries":  0,
		"history_limit":       20,
		"s3_bucket":           "audit",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "gateway.example:9000", cfg.StoreEndpointAddr)
		assert.Equal(t, 10*time.Second, cfg.PollBudget)
		assert.False(t, cfg.ValidationEnabled)
		assert.Zero(t, cfg.ValidationRetries)
		assert.Equal(t, 20, cfg.HistoryLimit)
		assert.Equal(t, "audit", cfg.S3Bucket)

		assert.Equal(t, "credits.db", cfg.DatabaseDSN, "absent keys keep defaults")
		assert.True(t, cfg.DemoFallback)
		assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	})

	t.Run("no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			StoreEndpointAddr: "defaults:1234",
			PollBudget:        42 * time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.StoreEndpointAddr)
		assert.Equal(t, 42*time.Second, cfg.PollBudget)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
