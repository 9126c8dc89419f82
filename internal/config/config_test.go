package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 1000000, cfg.Limits.MaxRowsPerTable)
	assert.Equal(t, 10, cfg.Limits.MaxConcurrentJobs)
	assert.Equal(t, "us-east-1", cfg.LLM.Region)
	assert.Equal(t, "/data/artifacts", cfg.Artifacts.Dir)
	// Datasets dir derives from the artifacts dir when unset.
	assert.Equal(t, "/data/artifacts/datasets", cfg.Artifacts.DatasetsDir)
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9999

[limits]
job_max_age = "2h"
cleanup_interval = "10m"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Limits.JobMaxAgeDuration())
	assert.Equal(t, 10*time.Minute, cfg.Limits.CleanupIntervalDuration())
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("DF_SERVER_PORT", "7070")
	t.Setenv("DF_AUTH_API_KEY", "sekret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "sekret", cfg.Auth.APIKey)
}

func TestDurationFallbacks(t *testing.T) {
	l := LimitsConfig{JobMaxAge: "garbage", CleanupInterval: ""}
	assert.Equal(t, 12*time.Hour, l.JobMaxAgeDuration())
	assert.Equal(t, time.Hour, l.CleanupIntervalDuration())
}
