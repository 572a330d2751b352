package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50061", c.EndpointAddrGRPC)
	assert.Equal(t, ":8081", c.HTTPAddr)
	assert.Equal(t, "devSigningKey", c.SigningKey)
	assert.Equal(t, EnvironmentSandbox, c.Environment)
	assert.Equal(t, 0, c.CancelEvery)
	assert.Equal(t, "json", c.LogFormat)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")
	assert.Equal(t, ":50061", c.EndpointAddrGRPC)
	assert.Equal(t, EnvironmentSandbox, c.Environment)
}
