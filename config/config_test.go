package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "DATABASE_URL", "MODELS_DIR", "RETRY_DELAY", "MAX_RETRIES", "MIN_F1", "JOBS_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "./models", cfg.ModelsDir)
	assert.Equal(t, "threat-detector", cfg.DefaultModelID)
	assert.Equal(t, 5*time.Minute, cfg.RetryDelay)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 0.5, cfg.MinF1)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RETRY_DELAY", "30s")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("MONITOR_ACCURACY_FLOOR", "0.75")
	t.Setenv("BACKUP_S3_BUCKET", "ml-backups")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.RetryDelay)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 0.75, cfg.MonitorAccuracyFloor)
	assert.Equal(t, "ml-backups", cfg.BackupS3Bucket)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "RETRY_DELAY", value: "five minutes"},
		{key: "MAX_RETRIES", value: "three"},
		{key: "MAX_RETRIES", value: "0"},
		{key: "MIN_F1", value: "1.5"},
		{key: "MONITOR_INTERVAL", value: "often"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}
