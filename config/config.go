package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	// Server
	ServerPort string
	LogMode    string

	// Database; empty keeps feedback in memory
	DatabaseURL string

	// Model store
	ModelsDir      string
	DefaultModelID string

	// Scheduler
	JobsFile      string
	SchedulerTick time.Duration
	RetryDelay    time.Duration
	MaxRetries    int

	// Training
	MinTrainingSamples int
	MinF1              float64

	// Feedback monitor; a zero interval disables it
	MonitorInterval      time.Duration
	MonitorAccuracyFloor float64
	MonitorMinSamples    int
	MonitorCooldown      time.Duration

	// Backups; an empty bucket disables the S3 mirror
	BackupS3Bucket string
	BackupS3Prefix string
	AWSRegion      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		LogMode:        getEnv("LOG_MODE", "dev"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ModelsDir:      getEnv("MODELS_DIR", "./models"),
		DefaultModelID: getEnv("DEFAULT_MODEL_ID", "threat-detector"),
		JobsFile:       getEnv("JOBS_FILE", ""),
		BackupS3Bucket: getEnv("BACKUP_S3_BUCKET", ""),
		BackupS3Prefix: getEnv("BACKUP_S3_PREFIX", "model-backups"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
	}

	var err error
	if cfg.SchedulerTick, err = getDuration("SCHEDULER_TICK", time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = getDuration("RETRY_DELAY", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getInt("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.MinTrainingSamples, err = getInt("MIN_TRAINING_SAMPLES", 20); err != nil {
		return nil, err
	}
	if cfg.MinF1, err = getFloat("MIN_F1", 0.5); err != nil {
		return nil, err
	}
	if cfg.MonitorInterval, err = getDuration("MONITOR_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MonitorAccuracyFloor, err = getFloat("MONITOR_ACCURACY_FLOOR", 0.8); err != nil {
		return nil, err
	}
	if cfg.MonitorMinSamples, err = getInt("MONITOR_MIN_SAMPLES", 50); err != nil {
		return nil, err
	}
	if cfg.MonitorCooldown, err = getDuration("MONITOR_COOLDOWN", 6*time.Hour); err != nil {
		return nil, err
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("MAX_RETRIES must be at least 1, got %d", cfg.MaxRetries)
	}
	if cfg.MinF1 < 0 || cfg.MinF1 > 1 {
		return nil, fmt.Errorf("MIN_F1 must be in [0,1], got %v", cfg.MinF1)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}
