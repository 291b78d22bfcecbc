// Package config provides unified configuration loading for IntelliDoc.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the IntelliDoc service.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	StatusCache    StatusCacheConfig    `yaml:"status_cache"`
	Model          ModelConfig          `yaml:"model"`
	Pipeline       PipelineConfig       `yaml:"pipeline"`
	Ingestion      IngestionConfig      `yaml:"ingestion"`
	Preprocessing  PreprocessingConfig  `yaml:"preprocessing"`
	Classification ClassificationConfig `yaml:"classification"`
	Catalog        CatalogConfig        `yaml:"catalog"`
	Webhook        WebhookConfig        `yaml:"webhook"`
	Observability  ObservabilityConfig  `yaml:"observability"`
}

// CatalogConfig points at the YAML catalog seed file. Empty means an
// empty catalog: only ad-hoc document types and inline fields work.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// DatabaseConfig holds result store connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // memory, sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// StatusCacheConfig holds the job status cache settings.
type StatusCacheConfig struct {
	Driver string        `yaml:"driver"` // memory or redis
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ModelConfig holds vision model settings. Token prices are per
// million tokens in micro-USD, matching the usage accounting.
type ModelConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Name              string        `yaml:"name"`
	Temperature       float64       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	InputCostPerMTok  int64         `yaml:"input_cost_per_mtok"`
	OutputCostPerMTok int64         `yaml:"output_cost_per_mtok"`
}

// StageConfig holds the timeout and retry budget for one pipeline stage.
type StageConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// PipelineConfig holds processing pipeline settings.
type PipelineConfig struct {
	MaxPagesPerFile          int         `yaml:"max_pages_per_file"`
	MaxFileSizeMB            int         `yaml:"max_file_size_mb"`
	DefaultSplittingStrategy string      `yaml:"default_splitting_strategy"`
	ParallelDocuments        int         `yaml:"parallel_documents"`
	Ingest                   StageConfig `yaml:"ingest"`
	Preprocess               StageConfig `yaml:"preprocess"`
	Split                    StageConfig `yaml:"split"`
	Classify                 StageConfig `yaml:"classify"`
	Extract                  StageConfig `yaml:"extract"`
	Validate                 StageConfig `yaml:"validate"`
	SupportedMIMETypes       []string    `yaml:"supported_mime_types"`
}

// IngestionConfig holds file source adapter settings.
type IngestionConfig struct {
	LocalEnabled bool          `yaml:"local_enabled"`
	URLEnabled   bool          `yaml:"url_enabled"`
	URLTimeout   time.Duration `yaml:"url_timeout"`
	TempDir      string        `yaml:"temp_dir"`
}

// PreprocessingConfig holds page normalization settings.
type PreprocessingConfig struct {
	QualityFloor float64 `yaml:"quality_floor"`
	DefaultDPI   int     `yaml:"default_dpi"`
}

// ClassificationConfig holds classification settings.
type ClassificationConfig struct {
	DefaultConfidenceThreshold float64 `yaml:"default_confidence_threshold"`
	MaxCandidates              int     `yaml:"max_candidates"`
}

// WebhookConfig holds job-completion webhook defaults.
type WebhookConfig struct {
	URL        string        `yaml:"url"`
	Secret     string        `yaml:"secret"`
	RetryCount int           `yaml:"retry_count"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8086,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "memory",
			SQLite: SQLiteConfig{
				Path:         "/tmp/intellidoc.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		StatusCache: StatusCacheConfig{
			Driver: "memory",
			TTL:    24 * time.Hour,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Model: ModelConfig{
			BaseURL:     "https://api.openai.com/v1",
			Name:        "gpt-4o",
			Temperature: 0.1,
			Timeout:     60 * time.Second,
			// gpt-4o list prices: $2.50/MTok in, $10/MTok out.
			InputCostPerMTok:  2_500_000,
			OutputCostPerMTok: 10_000_000,
		},
		Pipeline: PipelineConfig{
			MaxPagesPerFile:          500,
			MaxFileSizeMB:            100,
			DefaultSplittingStrategy: "whole_document",
			ParallelDocuments:        5,
			Ingest:                   StageConfig{Timeout: 60 * time.Second, Retries: 2},
			Preprocess:               StageConfig{Timeout: 120 * time.Second, Retries: 0},
			Split:                    StageConfig{Timeout: 60 * time.Second, Retries: 1},
			Classify:                 StageConfig{Timeout: 30 * time.Second, Retries: 2},
			Extract:                  StageConfig{Timeout: 60 * time.Second, Retries: 2},
			Validate:                 StageConfig{Timeout: 30 * time.Second, Retries: 0},
			SupportedMIMETypes: []string{
				"application/pdf",
				"image/png",
				"image/jpeg",
				"image/tiff",
				"image/bmp",
				"image/webp",
			},
		},
		Ingestion: IngestionConfig{
			LocalEnabled: true,
			URLEnabled:   true,
			URLTimeout:   60 * time.Second,
			TempDir:      os.TempDir(),
		},
		Preprocessing: PreprocessingConfig{
			QualityFloor: 0.3,
			DefaultDPI:   300,
		},
		Classification: ClassificationConfig{
			DefaultConfidenceThreshold: 0.7,
			MaxCandidates:              5,
		},
		Webhook: WebhookConfig{
			RetryCount: 3,
			Timeout:    30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "debug",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.StatusCache.Driver != "memory" && c.StatusCache.Driver != "redis" {
		return fmt.Errorf("invalid status cache driver: %s", c.StatusCache.Driver)
	}

	if c.Pipeline.ParallelDocuments < 1 {
		return fmt.Errorf("parallel_documents must be at least 1")
	}

	if c.Pipeline.MaxFileSizeMB < 1 {
		return fmt.Errorf("max_file_size_mb must be at least 1")
	}

	if t := c.Classification.DefaultConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("default_confidence_threshold must be between 0 and 1")
	}

	return nil
}

// MaxFileSizeBytes returns the configured file size limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Pipeline.MaxFileSizeMB) * 1024 * 1024
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		switch {
		case strings.HasPrefix(v, "sqlite:"):
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		case strings.HasPrefix(v, "postgres"):
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.StatusCache.Driver = "redis"
		cfg.StatusCache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("MODEL_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}

	if v := os.Getenv("MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}

	if v := os.Getenv("MODEL_NAME"); v != "" {
		cfg.Model.Name = v
	}

	if v := os.Getenv("MODEL_INPUT_COST_PER_MTOK"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Model.InputCostPerMTok = n
		}
	}

	if v := os.Getenv("MODEL_OUTPUT_COST_PER_MTOK"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Model.OutputCostPerMTok = n
		}
	}

	if v := os.Getenv("CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}

	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}

	if v := os.Getenv("PARALLEL_DOCUMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.ParallelDocuments = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
