package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.EnableCORS)
	assert.Equal(t, 0, cfg.Jobs.MaxConcurrent)
	assert.Equal(t, "ffmpeg", cfg.Transcoder.FFmpegPath)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "muxfetch.yaml")
	content := `
server:
  port: 9090
storage:
  data_dir: /var/lib/muxfetch
jobs:
  max_concurrent: 4
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig(path))

	cfg := cm.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Jobs.MaxConcurrent)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Derived paths hang off data_dir when not set explicitly.
	assert.Equal(t, filepath.Join("/var/lib/muxfetch", "downloads"), cfg.Storage.DownloadsDir)
	assert.Equal(t, filepath.Join("/var/lib/muxfetch", "temp"), cfg.Storage.WorkDir)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")))

	cfg := cm.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, filepath.Join("./muxfetch-data", "downloads"), cfg.Storage.DownloadsDir)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "muxfetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("MUXFETCH_PORT", "7070")
	t.Setenv("MUXFETCH_MAX_CONCURRENT_JOBS", "2")
	t.Setenv("MUXFETCH_READ_TIMEOUT", "45s")

	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig(path))

	cfg := cm.GetConfig()
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Jobs.MaxConcurrent)
	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too small", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"negative max concurrent", func(c *Config) { c.Jobs.MaxConcurrent = -1 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			cm := NewConfigManager()
			assert.Error(t, cm.validateConfig(cfg))
		})
	}
}

func TestExplicitStoragePathsAreKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "muxfetch.yaml")
	content := `
storage:
  data_dir: /data
  downloads_dir: /srv/public
  work_dir: /scratch
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig(path))

	cfg := cm.GetConfig()
	assert.Equal(t, "/srv/public", cfg.Storage.DownloadsDir)
	assert.Equal(t, "/scratch", cfg.Storage.WorkDir)
}

func TestWatcherNotifiedOnReload(t *testing.T) {
	cm := NewConfigManager()

	notified := make(chan int, 1)
	cm.AddWatcher(func(oldConfig, newConfig *Config) {
		notified <- newConfig.Server.Port
	})

	t.Setenv("MUXFETCH_PORT", "6060")
	require.NoError(t, cm.LoadConfig(""))

	select {
	case port := <-notified:
		assert.Equal(t, 6060, port)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher was not notified")
	}
}

func TestGetConfigReturnsCopy(t *testing.T) {
	cm := NewConfigManager()

	first := cm.GetConfig()
	first.Server.Port = 1

	assert.Equal(t, 8080, cm.GetConfig().Server.Port)
}
