package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), FileName))
		require.NoError(t, err)

		assert.Equal(t, "schemata", cfg.Paths.SchemaRoot)
		assert.Equal(t, "sqlite", cfg.Database.Backend)
		assert.Zero(t, cfg.Database.Port)
		assert.Empty(t, cfg.Database.Name)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "stderr", cfg.Log.Output)
		assert.Equal(t, ":8080", cfg.HTTP.Addr)
		assert.Equal(t, 5*time.Minute, cfg.HTTP.WriteTimeout)
		assert.True(t, cfg.HTTP.Swagger)
		assert.Equal(t, "single", cfg.Export.Mode)
		assert.Equal(t, "us-east-1", cfg.Storage.Region)
		assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
		assert.False(t, cfg.Cache.Redis)
		assert.False(t, cfg.Tracing.Enabled)
		assert.Equal(t, "localhost:4317", cfg.Tracing.Endpoint)
		assert.Equal(t, "cimorm", cfg.Tracing.ServiceName)
		assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	})

	t.Run("values from file", func(t *testing.T) {
		path := writeConfig(t, `
[paths]
schema_root = "/srv/schemata"
dataset_root = "/srv/datasets"

[database]
backend = "postgres"
host = "db"
user = "cim"

[http]
swagger = false

[export]
mode = "multi"
modeling_authority_set = "http://grid.example/planning"

[cache]
redis = true
ttl = "1h"

[tracing]
enabled = true
endpoint = "otel-collector:4317"
insecure = true
sample_ratio = 0.1
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "/srv/schemata", cfg.Paths.SchemaRoot)
		assert.Equal(t, "/srv/datasets", cfg.Paths.DatasetRoot)
		assert.Equal(t, "postgres", cfg.Database.Backend)
		assert.Equal(t, "db", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "cim", cfg.Database.Name)
		assert.False(t, cfg.HTTP.Swagger)
		assert.Equal(t, "multi", cfg.Export.Mode)
		assert.Equal(t, "http://grid.example/planning", cfg.Export.ModelingAuthoritySet)
		assert.True(t, cfg.Cache.Redis)
		assert.Equal(t, time.Hour, cfg.Cache.TTL)
		assert.True(t, cfg.Tracing.Enabled)
		assert.True(t, cfg.Tracing.Insecure)
		assert.Equal(t, "otel-collector:4317", cfg.Tracing.Endpoint)
		assert.Equal(t, 0.1, cfg.Tracing.SampleRatio)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, `
[database]
backend = "mariadb"
host = "db"
`)
		t.Setenv("CIMORM_DATABASE_HOST", "galera")
		t.Setenv("CIMORM_DATABASE_PASSWORD", "secret")
		t.Setenv("CIMORM_LOG_LEVEL", "DEBUG")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "galera", cfg.Database.Host)
		assert.Equal(t, "secret", cfg.Database.Password)
		assert.Equal(t, 3306, cfg.Database.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := Load(writeConfig(t, "[paths\nschema_root ="))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Database.Backend = "oracle" },
			field:  "Database.Backend",
		},
		{
			name:   "client server backend without host",
			mutate: func(c *Config) { c.Database.Backend = "postgres" },
			field:  "Database.Host",
		},
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Database.Port = 70000 },
			field:  "Database.Port",
		},
		{
			name:   "unknown log format",
			mutate: func(c *Config) { c.Log.Format = "logfmt" },
			field:  "Log.Format",
		},
		{
			name:   "sample ratio above one",
			mutate: func(c *Config) { c.Tracing.SampleRatio = 1.5 },
			field:  "Tracing.SampleRatio",
		},
		{
			name:   "unknown export mode",
			mutate: func(c *Config) { c.Export.Mode = "per-class" },
			field:  "Export.Mode",
		},
		{
			name:   "storage without bucket",
			mutate: func(c *Config) { c.Storage.Enabled = true; c.Storage.AccessKey = "a"; c.Storage.SecretKey = "s" },
			field:  "Storage.Bucket",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfigure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", FileName)
	schemata := filepath.Join(dir, "schemata")
	datasets := filepath.Join(dir, "datasets")

	written, err := Configure(path, schemata, datasets)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, schemata, cfg.Paths.SchemaRoot)
	assert.Equal(t, datasets, cfg.Paths.DatasetRoot)

	t.Run("keeps other settings", func(t *testing.T) {
		path := writeConfig(t, `
[paths]
dataset_root = "/srv/datasets"

[export]
modeling_authority_set = "TSO"
`)
		_, err := Configure(path, schemata, "")
		require.NoError(t, err)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, schemata, cfg.Paths.SchemaRoot)
		assert.Equal(t, "/srv/datasets", cfg.Paths.DatasetRoot)
		assert.Equal(t, "TSO", cfg.Export.ModelingAuthoritySet)
	})
}
