package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8086, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.StatusCache.Driver)
	assert.Equal(t, "whole_document", cfg.Pipeline.DefaultSplittingStrategy)
	assert.Equal(t, 5, cfg.Pipeline.ParallelDocuments)
	assert.Equal(t, 0.7, cfg.Classification.DefaultConfidenceThreshold)
	assert.Contains(t, cfg.Pipeline.SupportedMIMETypes, "application/pdf")
	assert.Equal(t, int64(100*1024*1024), cfg.MaxFileSizeBytes())
	assert.Equal(t, int64(2_500_000), cfg.Model.InputCostPerMTok)
	assert.Equal(t, int64(10_000_000), cfg.Model.OutputCostPerMTok)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  driver: sqlite
  sqlite:
    path: /var/lib/intellidoc/results.db
pipeline:
  parallel_documents: 3
  classify:
    timeout: 45s
    retries: 1
model:
  input_cost_per_mtok: 150000
  output_cost_per_mtok: 600000
catalog:
  path: /etc/intellidoc/catalog.yaml
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/var/lib/intellidoc/results.db", cfg.Database.SQLite.Path)
	assert.Equal(t, 3, cfg.Pipeline.ParallelDocuments)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.Classify.Timeout)
	assert.Equal(t, 1, cfg.Pipeline.Classify.Retries)
	assert.Equal(t, "/etc/intellidoc/catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, int64(150_000), cfg.Model.InputCostPerMTok)
	assert.Equal(t, int64(600_000), cfg.Model.OutputCostPerMTok)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "whole_document", cfg.Pipeline.DefaultSplittingStrategy)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DATABASE_URL", "sqlite:/tmp/override.db")
	t.Setenv("MODEL_API_KEY", "sk-env")
	t.Setenv("CATALOG_PATH", "/opt/catalog.yaml")
	t.Setenv("PARALLEL_DOCUMENTS", "8")
	t.Setenv("MODEL_INPUT_COST_PER_MTOK", "200000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/override.db", cfg.Database.SQLite.Path)
	assert.Equal(t, "sk-env", cfg.Model.APIKey)
	assert.Equal(t, "/opt/catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, 8, cfg.Pipeline.ParallelDocuments)
	assert.Equal(t, int64(200_000), cfg.Model.InputCostPerMTok)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad database driver", func(c *Config) { c.Database.Driver = "mongo" }},
		{"bad cache driver", func(c *Config) { c.StatusCache.Driver = "memcached" }},
		{"zero parallelism", func(c *Config) { c.Pipeline.ParallelDocuments = 0 }},
		{"zero file size", func(c *Config) { c.Pipeline.MaxFileSizeMB = 0 }},
		{"threshold out of range", func(c *Config) { c.Classification.DefaultConfidenceThreshold = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}
