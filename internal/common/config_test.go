package common

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"SAF_WORKERS", "SAF_JOB_TIMEOUT", "SAF_FETCH_TIMEOUT",
		"SAF_BATCH_SCHEDULE", "SAF_OCR_LANG", "SAF_SCAN_STRATEGY", "SAF_DASHBOARD_ADDR",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	if cfg.Batch.Workers != 4 {
		t.Errorf("workers: got %d, want 4", cfg.Batch.Workers)
	}
	if cfg.Batch.JobTimeout != 90*time.Second {
		t.Errorf("job timeout: got %v, want 90s", cfg.Batch.JobTimeout)
	}
	if cfg.Batch.FetchTimeout != 10*time.Second {
		t.Errorf("fetch timeout: got %v, want 10s", cfg.Batch.FetchTimeout)
	}
	if cfg.Batch.CronSpec != "@every 5m" {
		t.Errorf("cron spec: got %q", cfg.Batch.CronSpec)
	}
	if cfg.Vision.Language != "spa" {
		t.Errorf("ocr language: got %q, want spa", cfg.Vision.Language)
	}
	if cfg.Vision.ScanStrategy != "full-page" {
		t.Errorf("scan strategy: got %q, want full-page", cfg.Vision.ScanStrategy)
	}
	if cfg.Dashboard.Addr != ":8090" {
		t.Errorf("dashboard addr: got %q", cfg.Dashboard.Addr)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SAF_WORKERS", "8")
	t.Setenv("SAF_JOB_TIMEOUT", "2m")
	t.Setenv("SAF_SCAN_STRATEGY", "zonal")
	t.Setenv("SAF_OCR_LANG", "spa+eng")

	cfg := LoadConfig()
	if cfg.Batch.Workers != 8 {
		t.Errorf("workers: got %d, want 8", cfg.Batch.Workers)
	}
	if cfg.Batch.JobTimeout != 2*time.Minute {
		t.Errorf("job timeout: got %v, want 2m", cfg.Batch.JobTimeout)
	}
	if cfg.Vision.ScanStrategy != "zonal" {
		t.Errorf("scan strategy: got %q, want zonal", cfg.Vision.ScanStrategy)
	}
	if cfg.Vision.Language != "spa+eng" {
		t.Errorf("ocr language: got %q", cfg.Vision.Language)
	}
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SAF_WORKERS", "many")
	t.Setenv("SAF_JOB_TIMEOUT", "pronto")

	cfg := LoadConfig()
	if cfg.Batch.Workers != 4 {
		t.Errorf("workers: got %d, want default 4", cfg.Batch.Workers)
	}
	if cfg.Batch.JobTimeout != 90*time.Second {
		t.Errorf("job timeout: got %v, want default 90s", cfg.Batch.JobTimeout)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Batch:  BatchConfig{Workers: 4, JobTimeout: time.Minute, FetchTimeout: 10 * time.Second},
			Vision: VisionConfig{ScanStrategy: "full-page"},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"zero job timeout", func(c *Config) { c.Batch.JobTimeout = 0 }},
		{"zero fetch timeout", func(c *Config) { c.Batch.FetchTimeout = 0 }},
		{"unknown scan strategy", func(c *Config) { c.Vision.ScanStrategy = "diagonal" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
