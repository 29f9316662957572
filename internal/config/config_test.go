package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default log format = %s, want json", cfg.Logging.Format)
	}
	if cfg.Pipeline.DefaultBatchSize != 25 {
		t.Errorf("default batch size = %d, want 25", cfg.Pipeline.DefaultBatchSize)
	}
	if cfg.Pipeline.MaxBatchSize != 50 {
		t.Errorf("max batch size = %d, want 50", cfg.Pipeline.MaxBatchSize)
	}
	if cfg.Pipeline.MaxRetries != 3 {
		t.Errorf("max retries = %d, want 3", cfg.Pipeline.MaxRetries)
	}
	if cfg.Pipeline.QualityThreshold != 0.4 {
		t.Errorf("quality threshold = %v, want 0.4", cfg.Pipeline.QualityThreshold)
	}
	if cfg.Pipeline.ReliabilityThreshold != 0.7 {
		t.Errorf("reliability threshold = %v, want 0.7", cfg.Pipeline.ReliabilityThreshold)
	}
	if cfg.Pipeline.ItemInterval != 500*time.Millisecond {
		t.Errorf("item interval = %v, want 500ms", cfg.Pipeline.ItemInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PIPELINE_BATCH_SIZE", "10")
	t.Setenv("PIPELINE_QUALITY_THRESHOLD", "0.6")
	t.Setenv("PIPELINE_ITEM_INTERVAL_MS", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cfg.Logging.Level)
	}
	if cfg.Pipeline.DefaultBatchSize != 10 {
		t.Errorf("batch size = %d, want 10", cfg.Pipeline.DefaultBatchSize)
	}
	if cfg.Pipeline.QualityThreshold != 0.6 {
		t.Errorf("quality threshold = %v, want 0.6", cfg.Pipeline.QualityThreshold)
	}
	if cfg.Pipeline.ItemInterval != 100*time.Millisecond {
		t.Errorf("item interval = %v, want 100ms", cfg.Pipeline.ItemInterval)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LOG_LEVEL", "verbose"},
		{"LOG_FORMAT", "xml"},
		{"PIPELINE_BATCH_SIZE", "-5"},
		{"PIPELINE_BATCH_SIZE", "lots"},
		{"PIPELINE_QUALITY_THRESHOLD", "1.5"},
		{"PIPELINE_RELIABILITY_THRESHOLD", "-0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error without DATABASE_URL")
	}

	cfg.Database.URL = "postgres://localhost/prensa"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}
