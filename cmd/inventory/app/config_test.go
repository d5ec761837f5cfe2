package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt653/high-life-auto-sub000/internal/enhancements"
	"github.com/matt653/high-life-auto-sub000/internal/snapshot"
	"github.com/matt653/high-life-auto-sub000/pkg/authority"
	"github.com/matt653/high-life-auto-sub000/pkg/constants"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("INVENTORY_CONFIG", "")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Empty(t, config.Feeds)
	assert.Equal(t, snapshot.DriverSQLite, config.SnapshotDriver)
	assert.Equal(t, filepath.Join(home, ".inventory", constants.DefaultSnapshotFile), config.SnapshotPath)
	assert.Equal(t, enhancements.DriverFile, config.Enhancements.Driver)
	assert.Equal(t, filepath.Join(home, ".inventory", "enhancements.yaml"), config.Enhancements.Path)
	assert.Empty(t, config.Enhancements.Fallback)
	assert.Equal(t, constants.ResolveDeadline, config.ResolveDeadline)
	assert.Equal(t, constants.EnhancementTimeout, config.EnhancementTimeout)
	assert.Equal(t, constants.DefaultUpdateInterval, config.AutoUpdateInterval)
	assert.Equal(t, 8080, config.Server.Port)
	assert.False(t, config.Server.AuthEnabled)
	assert.Equal(t, "auto", config.LogFormat)
}

func TestLoadConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()

	path := writeConfig(t, `
data_path: `+dir+`
feeds:
  - name: main
    url: https://dealer.example/feed.csv
    api_key: secret
    timeout: 20s
    auth:
      scheme: bearer
  - name: wholesale
    path: /srv/feeds/wholesale.csv
    mode: rfc
snapshot:
  driver: yaml
enhancements:
  driver: redis
  fallback: [~/legacy/enhancements.yaml, /srv/import.yaml]
redis:
  addr: localhost:6379
loader:
  deadline: 3s
authority:
  - path: mileage
    rule: base
    priority: 50
server:
  port: 9090
  api_key: k
  cors_origins: [https://shop.example]
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	require.Len(t, config.Feeds, 2)
	assert.Equal(t, "main", config.Feeds[0].Name)
	assert.Equal(t, "secret", config.Feeds[0].APIKey)
	assert.Equal(t, 20*time.Second, config.Feeds[0].Timeout)
	assert.Equal(t, "bearer", config.Feeds[0].Auth.Scheme)
	assert.Equal(t, "rfc", config.Feeds[1].Mode)

	assert.Equal(t, filepath.Join(dir, "snapshots"), config.SnapshotPath)
	assert.Equal(t, "redis", config.Enhancements.Driver)
	assert.Equal(t, "localhost:6379", config.Enhancements.Redis.Addr)
	assert.Equal(t, "inventory:enhancements", config.Enhancements.Redis.Key)
	assert.Equal(t, []string{filepath.Join(home, "legacy", "enhancements.yaml"), "/srv/import.yaml"}, config.Enhancements.Fallback)
	assert.Equal(t, 3*time.Second, config.ResolveDeadline)

	require.Len(t, config.Authority, 1)
	assert.Equal(t, authority.BaseAlways, config.Authority[0].Rule)
	assert.Equal(t, 50, config.Authority[0].Priority)

	assert.Equal(t, 9090, config.Server.Port)
	assert.True(t, config.Server.AuthEnabled)
	assert.True(t, config.Server.CORSEnabled)
	assert.Equal(t, path, config.ConfigFile)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, "server:\n  port: 9090\nlog_level: warn\n")
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("LOADER_DEADLINE", "750ms")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, config.Server.Port)
	assert.Equal(t, 750*time.Millisecond, config.ResolveDeadline)
	assert.Equal(t, "warn", config.LogLevel)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name string
		body string
	}{
		{name: "bad rule", body: "authority:\n  - path: price\n    rule: sometimes\n"},
		{name: "bad yaml", body: "feeds: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")
}

func TestUpdateFromFlags(t *testing.T) {
	c := &Config{Format: "yaml"}
	c.UpdateFromFlags(true, false, true, "", "error")
	assert.True(t, c.Verbose)
	assert.True(t, c.NoColor)
	assert.Equal(t, "yaml", c.Format, "an empty flag keeps the configured format")
	assert.Equal(t, "error", c.LogLevelFlag)
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, home, expandPath("~"))
	assert.Equal(t, filepath.Join(home, "data"), expandPath("~/data"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
	assert.Equal(t, "~other/x", expandPath("~other/x"))
}
