package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "gpt-4o-mini", cfg.Agent.Model)
	assert.Equal(t, 4096, cfg.Agent.MaxTokens)
	assert.Equal(t, 20, cfg.Agent.MaxIterations)
	assert.Equal(t, 300*time.Second, cfg.Bus.StreamTimeoutDuration())
	assert.Equal(t, time.Minute, cfg.Bus.SweepIntervalDuration())
	assert.Equal(t, 15*time.Minute, cfg.Bus.MaxAgeDuration())
	require.NotNil(t, cfg.Channel.WebSocket)
	assert.Equal(t, 18790, cfg.Channel.WebSocket.Port)
	assert.True(t, cfg.Tools.RestrictToWorkspace)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_CamelCaseJSONOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"agent": {"maxTokens": 2048},
		"provider": {"apiKey": "sk-test"},
		"bus": {"streamTimeout": 30},
		"channel": {"websocket": {"port": 9090, "allowFrom": ["u1"]}},
		"tools": {"restrictToWorkspace": false}
	}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Agent.MaxTokens)
	assert.Equal(t, 20, cfg.Agent.MaxIterations)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Bus.StreamTimeoutDuration())
	assert.Equal(t, 60, cfg.Bus.StreamSweepInterval)
	assert.Equal(t, 9090, cfg.Channel.WebSocket.Port)
	assert.Equal(t, []string{"u1"}, cfg.Channel.WebSocket.AllowFrom)
	assert.False(t, cfg.Tools.RestrictToWorkspace)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  model: local-model
bus:
  streamTimeout: 5
  streamMaxAge: 10
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "local-model", cfg.Agent.Model)
	assert.Equal(t, 5*time.Second, cfg.Bus.StreamTimeoutDuration())
	assert.Equal(t, 10*time.Second, cfg.Bus.MaxAgeDuration())
	assert.Equal(t, 4096, cfg.Agent.MaxTokens)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	cfg, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoad_JSONAndYAML(t *testing.T) {
	for _, name := range []string{"sub/config.json", "sub/config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.Agent.Workspace = "/tmp/ws"
			cfg.Bus.StreamTimeout = 42

			require.NoError(t, Save(cfg, path))
			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	assert.True(t, strings.HasSuffix(GetConfigPath(), filepath.Join(".nanobus", "config.json")))
}
