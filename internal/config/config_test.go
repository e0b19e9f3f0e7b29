package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 10, cfg.Pipeline.Concurrency)
	require.Equal(t, 3, cfg.HTTP.MaxRetries)
	require.Equal(t, 30, cfg.HTTP.TimeoutSeconds)
	require.Equal(t, "snapshots", cfg.DB.Table)
	require.False(t, cfg.Headless.Enabled)
	require.True(t, cfg.Ops.Enabled)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "docwatch.yaml")
	body := []byte(`
watcher:
  targets_file: /etc/docwatch/targets.yaml
  interval_seconds: 900
http:
  max_retries: 1
pipeline:
  concurrency: 3
  strict_parsing: true
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/etc/docwatch/targets.yaml", cfg.Watcher.TargetsFile)
	require.Equal(t, 900, cfg.Watcher.IntervalSeconds)
	require.Equal(t, 1, cfg.HTTP.MaxRetries)
	require.Equal(t, 3, cfg.Pipeline.Concurrency)
	require.True(t, cfg.Pipeline.StrictParsing)
	// Untouched keys keep their defaults.
	require.Equal(t, 30, cfg.HTTP.TimeoutSeconds)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Pipeline.Concurrency = 0
	require.ErrorContains(t, cfg.Validate(), "pipeline.concurrency")

	cfg = base()
	cfg.HTTP.MaxRetries = -1
	require.ErrorContains(t, cfg.Validate(), "http.max_retries")

	cfg = base()
	cfg.Headless.Enabled = true
	cfg.Headless.MaxParallel = 0
	require.ErrorContains(t, cfg.Validate(), "headless.max_parallel")

	cfg = base()
	cfg.Watcher.TargetsFile = ""
	require.ErrorContains(t, cfg.Validate(), "watcher.targets_file")
}
