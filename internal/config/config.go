package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	OpenAI   OpenAIConfig
	Pipeline PipelineConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig holds content store connection parameters.
type DatabaseConfig struct {
	URL             string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenAIConfig holds summarization provider parameters. PremiumModel and
// StandardModel are the two cost tiers the policy selects between.
type OpenAIConfig struct {
	APIKey        string
	PremiumModel  string
	StandardModel string
	MaxTokens     int
	Timeout       time.Duration
}

// PipelineConfig holds the ingestion pipeline's tunable policy parameters.
// The thresholds are the named knobs behind the quality and model policy;
// nothing in the pipeline hardcodes them.
type PipelineConfig struct {
	DefaultBatchSize     int           // Items per run when the caller gives no limit
	MaxBatchSize         int           // Hard ceiling regardless of requested limit
	MaxRetries           int           // Attempts before an item is permanently parked
	MinContentLength     int           // Bodies shorter than this are rejected without a provider call
	QualityThreshold     float64       // Minimum provider quality score to accept
	ReliabilityThreshold float64       // Source reliability above which the premium tier is used
	ItemInterval         time.Duration // Pacing between provider calls
	StaleClaimAfter      time.Duration // Processing claims older than this are reclaimed
	RunInterval          time.Duration // Scheduler period; 0 disables the internal scheduler
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultMaxConnections  = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute

	defaultPremiumModel  = "gpt-4o"
	defaultStandardModel = "gpt-4o-mini"
	defaultMaxTokens     = 2000
	defaultOpenAITimeout = 120 * time.Second

	defaultBatchSize            = 25
	defaultMaxBatchSize         = 50
	defaultMaxRetries           = 3
	defaultMinContentLength     = 50
	defaultQualityThreshold     = 0.4
	defaultReliabilityThreshold = 0.7
	defaultItemInterval         = 500 * time.Millisecond
	defaultStaleClaimAfter      = 15 * time.Minute
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided. Invalid values are errors rather than silent
// fallbacks.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", defaultPort),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxConnections:  defaultMaxConnections,
			MaxIdleConns:    defaultMaxIdleConns,
			ConnMaxLifetime: defaultConnMaxLifetime,
		},
		OpenAI: OpenAIConfig{
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			PremiumModel:  getEnv("OPENAI_PREMIUM_MODEL", defaultPremiumModel),
			StandardModel: getEnv("OPENAI_STANDARD_MODEL", defaultStandardModel),
			MaxTokens:     defaultMaxTokens,
			Timeout:       defaultOpenAITimeout,
		},
		Pipeline: PipelineConfig{
			DefaultBatchSize:     defaultBatchSize,
			MaxBatchSize:         defaultMaxBatchSize,
			MaxRetries:           defaultMaxRetries,
			MinContentLength:     defaultMinContentLength,
			QualityThreshold:     defaultQualityThreshold,
			ReliabilityThreshold: defaultReliabilityThreshold,
			ItemInterval:         defaultItemInterval,
			StaleClaimAfter:      defaultStaleClaimAfter,
		},
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OPENAI_MAX_TOKENS: %w", err)
		}
		cfg.OpenAI.MaxTokens = n
	}

	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OPENAI_TIMEOUT_SECONDS: %w", err)
		}
		cfg.OpenAI.Timeout = d
	}

	if v := os.Getenv("PIPELINE_BATCH_SIZE"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PIPELINE_BATCH_SIZE: %w", err)
		}
		cfg.Pipeline.DefaultBatchSize = n
	}

	if v := os.Getenv("PIPELINE_MAX_RETRIES"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PIPELINE_MAX_RETRIES: %w", err)
		}
		cfg.Pipeline.MaxRetries = n
	}

	if v := os.Getenv("PIPELINE_MIN_CONTENT_LENGTH"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PIPELINE_MIN_CONTENT_LENGTH: %w", err)
		}
		cfg.Pipeline.MinContentLength = n
	}

	if v := os.Getenv("PIPELINE_QUALITY_THRESHOLD"); v != "" {
		f, err := parseUnitFloat(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PIPELINE_QUALITY_THRESHOLD: %w", err)
		}
		cfg.Pipeline.QualityThreshold = f
	}

	if v := os.Getenv("PIPELINE_RELIABILITY_THRESHOLD"); v != "" {
		f, err := parseUnitFloat(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PIPELINE_RELIABILITY_THRESHOLD: %w", err)
		}
		cfg.Pipeline.ReliabilityThreshold = f
	}

	if v := os.Getenv("PIPELINE_ITEM_INTERVAL_MS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PIPELINE_ITEM_INTERVAL_MS: %w", err)
		}
		cfg.Pipeline.ItemInterval = time.Duration(n) * time.Millisecond
	}

	if v := os.Getenv("PIPELINE_STALE_CLAIM_MINUTES"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PIPELINE_STALE_CLAIM_MINUTES: %w", err)
		}
		cfg.Pipeline.StaleClaimAfter = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("PIPELINE_RUN_INTERVAL_MINUTES"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PIPELINE_RUN_INTERVAL_MINUTES: %w", err)
		}
		cfg.Pipeline.RunInterval = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	return cfg, nil
}

// Validate checks the parts of the configuration a running pipeline cannot do
// without. Called at startup so misconfiguration aborts the process rather
// than a batch.
func (c Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Pipeline.QualityThreshold < 0 || c.Pipeline.QualityThreshold > 1 {
		return fmt.Errorf("quality threshold must be in [0,1]")
	}
	if c.Pipeline.ReliabilityThreshold < 0 || c.Pipeline.ReliabilityThreshold > 1 {
		return fmt.Errorf("reliability threshold must be in [0,1]")
	}
	return nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func parseUnitFloat(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || f > 1 {
		return 0, fmt.Errorf("must be a number in [0,1]")
	}
	return f, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
