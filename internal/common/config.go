package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Batch     BatchConfig
	Vision    VisionConfig
	Dashboard DashboardConfig
	Archive   ArchiveConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// BatchConfig holds orchestration settings for a batch run.
type BatchConfig struct {
	Workers      int
	JobTimeout   time.Duration
	FetchTimeout time.Duration
	CronSpec     string
	SourceDir    string
}

// VisionConfig holds settings for the external recognition engines.
type VisionConfig struct {
	Tesseract    string
	Zbarimg      string
	Language     string
	TessdataDir  string
	ScanStrategy string // "full-page" | "zonal"
}

// DashboardConfig holds the read-only dashboard server settings.
type DashboardConfig struct {
	Addr string
}

// ArchiveConfig holds the local result archive settings.
type ArchiveConfig struct {
	Path string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("SAF_DB_URL", ""),
			MaxConns:         getEnvAsInt32("SAF_DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("SAF_DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("SAF_DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("SAF_DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("SAF_DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("SAF_DB_STATEMENT_TIMEOUT", 0),
		},
		Batch: BatchConfig{
			Workers:      getEnvAsInt("SAF_WORKERS", 4),
			JobTimeout:   getEnvAsDuration("SAF_JOB_TIMEOUT", 90*time.Second),
			FetchTimeout: getEnvAsDuration("SAF_FETCH_TIMEOUT", 10*time.Second),
			CronSpec:     getEnv("SAF_BATCH_SCHEDULE", "@every 5m"),
			SourceDir:    getEnv("SAF_SOURCE_DIR", ""),
		},
		Vision: VisionConfig{
			Tesseract:    getEnv("SAF_TESSERACT", "tesseract"),
			Zbarimg:      getEnv("SAF_ZBARIMG", "zbarimg"),
			Language:     getEnv("SAF_OCR_LANG", "spa"),
			TessdataDir:  getEnv("TESSDATA_PREFIX", ""),
			ScanStrategy: getEnv("SAF_SCAN_STRATEGY", "full-page"),
		},
		Dashboard: DashboardConfig{
			Addr: getEnv("SAF_DASHBOARD_ADDR", ":8090"),
		},
		Archive: ArchiveConfig{
			Path: getEnv("SAF_ARCHIVE_PATH", "saf_archive.db"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "SAF_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Batch.JobTimeout <= 0 {
		return NewAppError("CONFIG_ERROR", "SAF_JOB_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.Batch.FetchTimeout <= 0 {
		return NewAppError("CONFIG_ERROR", "SAF_FETCH_TIMEOUT must be positive", ErrInvalidInput)
	}
	switch c.Vision.ScanStrategy {
	case "full-page", "zonal":
	default:
		return NewAppError("CONFIG_ERROR", "SAF_SCAN_STRATEGY must be full-page or zonal", ErrInvalidInput)
	}
	return nil
}
