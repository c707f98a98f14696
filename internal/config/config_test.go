package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadExplicit(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: 127.0.0.1:9999
llm:
  api_key: k
  timeout: 5s
monitors:
  main: [0, 0, 2560, 1440]
  left: [-1920, 0, 0, 1080]
presets:
  file: /tmp/p.yaml
history:
  path: /tmp/h.db
url_shorthands:
  wiki: en.wikipedia.org
log:
  level: debug
`)
	cfg, used, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "k", cfg.LLM.APIKey)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, defaultModelName, cfg.LLM.ModelName)
	assert.Equal(t, []int{-1920, 0, 0, 1080}, cfg.Monitors.Left)
	assert.Equal(t, "en.wikipedia.org", cfg.URLShorthands["wiki"])
	assert.Equal(t, defaultQueryMemory, cfg.Query.Memory)
	assert.Equal(t, "/tmp/p.yaml", cfg.Presets.File)
}

func TestDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "from-env")
	cfg, _, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)
	assert.Equal(t, defaultAddr, cfg.Server.Addr)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, []int{0, 0, 1920, 1080}, cfg.Monitors.Main)
	assert.Equal(t, "presets.yaml", filepath.Base(cfg.Presets.File))
	assert.Equal(t, "history.db", filepath.Base(cfg.History.Path))
	assert.Equal(t, defaultRefresh, cfg.Refresh.Interval)
}

func TestValidate(t *testing.T) {
	tests := map[string]string{
		"public addr":   "server:\n  addr: 0.0.0.0:8770\n",
		"bad monitor":   "monitors:\n  left: [0, 0, 10]\n",
		"empty monitor": "monitors:\n  right: [100, 0, 50, 1080]\n",
		"log level":     "log:\n  level: loud\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicit(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadGarbage(t *testing.T) {
	_, _, err := Load(writeConfig(t, "server: [1, 2"))
	assert.Error(t, err)
}

func TestCheckLoopback(t *testing.T) {
	for _, ok := range []string{"127.0.0.1:8770", "localhost:0", "[::1]:9000"} {
		assert.NoError(t, CheckLoopback(ok), ok)
	}
	for _, bad := range []string{"0.0.0.0:8770", ":8770", "192.168.1.4:80", "example.com:80", "nonsense"} {
		assert.Error(t, CheckLoopback(bad), bad)
	}
}
