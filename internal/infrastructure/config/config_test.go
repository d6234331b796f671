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
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100, cfg.Model.MaxBatchSize)
	assert.Equal(t, 50, cfg.Training.MinSamples)
	assert.Equal(t, 0.2, cfg.Training.TestFraction)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9100
model:
  max_batch_size: 25
  risk_bundle_path: /data/risk.json
training:
  min_samples: 200
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Model.MaxBatchSize)
	assert.Equal(t, "/data/risk.json", cfg.Model.RiskBundlePath)
	assert.Equal(t, 200, cfg.Training.MinSamples)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5, cfg.Training.Folds)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CTE_ENVIRONMENT", "production")
	t.Setenv("CTE_SERVER_PORT", "9200")
	t.Setenv("CTE_REDIS_URL", "redis://cache:6379")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "redis://cache:6379", cfg.Redis.URL)
}

func TestMissingFileFallsThrough(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad port", body: "server:\n  port: -1\n"},
		{name: "bad batch size", body: "model:\n  max_batch_size: 0\n"},
		{name: "bad test fraction", body: "training:\n  test_fraction: 1.5\n"},
		{name: "bad folds", body: "training:\n  folds: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}
}
