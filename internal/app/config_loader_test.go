package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/vidharvest/internal/domain"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
pipeline:
  workers: 8
  queue_size: 50
  input_file: ~/lists/videos.txt
ledger:
  backend: sqlite
  database_path: $HOME/vh/ledger.db
http:
  timeout: 30s
  robots_url: https://www.tiktok.com/robots.txt
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, 8, config.Pipeline.Workers)
	assert.Equal(t, 50, config.Pipeline.QueueSize)
	assert.Equal(t, filepath.Join(home, "lists", "videos.txt"), config.Pipeline.InputFile)
	assert.Equal(t, domain.LedgerSQLite, config.Ledger.Backend)
	assert.Equal(t, filepath.Join(home, "vh", "ledger.db"), config.Ledger.DatabasePath)
	assert.Equal(t, 30*time.Second, config.HTTP.Timeout)
	assert.Equal(t, "https://www.tiktok.com/robots.txt", config.HTTP.RobotsURL)

	// Untouched sections keep defaults
	assert.Equal(t, "./videos", config.Download.BaseDir)
	assert.Equal(t, "video", config.Extractor.Selector)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  workers: 2\n"), 0644))

	t.Setenv("VIDHARVEST_PIPELINE_WORKERS", "6")
	t.Setenv("VIDHARVEST_LEDGER_PATH", filepath.Join(dir, "done.txt"))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 6, config.Pipeline.Workers)
	assert.Equal(t, filepath.Join(dir, "done.txt"), config.Ledger.Path)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline: [unclosed"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  workers: 0\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *domain.Config)
		wantErr bool
	}{
		{"defaults", func(c *domain.Config) {}, false},
		{"zero queue", func(c *domain.Config) { c.Pipeline.QueueSize = 0 }, true},
		{"unknown backend", func(c *domain.Config) { c.Ledger.Backend = "etcd" }, true},
		{"redis without key", func(c *domain.Config) { c.Ledger.Backend = domain.LedgerRedis; c.Ledger.RedisKey = "" }, true},
		{"bad port ignored when server disabled", func(c *domain.Config) { c.Server.Port = 0 }, false},
		{"bad port with server enabled", func(c *domain.Config) { c.Server.Enabled = true; c.Server.Port = 70000 }, true},
		{"empty base dir", func(c *domain.Config) { c.Download.BaseDir = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := domain.DefaultConfig()
			tt.mutate(config)
			err := ValidateConfig(config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := domain.DefaultConfig()
	config.Pipeline.Workers = 3
	config.Ledger.Backend = domain.LedgerRedis
	config.HTTP.Timeout = 45 * time.Second
	require.NoError(t, SaveConfig(config, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Pipeline.Workers)
	assert.Equal(t, domain.LedgerRedis, loaded.Ledger.Backend)
	assert.Equal(t, 45*time.Second, loaded.HTTP.Timeout)
	assert.Equal(t, config.HTTP.UserAgent, loaded.HTTP.UserAgent)
}
