// Package config loads the cimorm configuration from a TOML file and
// CIMORM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// FileName is the base name of the configuration file.
const FileName = "cimorm.toml"

// Config holds all application configuration
type Config struct {
	Paths    PathsConfig
	Database DatabaseConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Export   ExportConfig
	Storage  StorageConfig
	Cache    CacheConfig
	Tracing  TracingConfig
}

// PathsConfig locates schemata and datasets.
type PathsConfig struct {
	SchemaRoot  string `validate:"required"`
	DatasetRoot string
}

// DatabaseConfig selects the dataset backend.
type DatabaseConfig struct {
	Backend  string `validate:"oneof=sqlite memory postgres mysql mariadb"`
	Path     string // sqlite file; relative paths are placed next to the dataset
	Host     string `validate:"required_if=Backend postgres,required_if=Backend mysql,required_if=Backend mariadb"`
	Port     int    `validate:"gte=0,lte=65535"`
	User     string
	Password string
	Name     string
	Echo     bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn warning error"`
	Format string `validate:"oneof=json console"`
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr           string        `validate:"required"`
	ReadTimeout    time.Duration `validate:"gte=0"`
	WriteTimeout   time.Duration `validate:"gte=0"`
	IdleTimeout    time.Duration `validate:"gte=0"`
	MaxHeaderBytes int           `validate:"gte=0"`
	TrustedProxies []string
	AllowOrigins   []string

	// RateLimit caps export requests per client and minute; 0 disables it.
	RateLimit int `validate:"gte=0"`
	// Swagger serves the OpenAPI document and UI under /swagger.
	Swagger bool
}

// ExportConfig holds defaults for serialized documents.
type ExportConfig struct {
	Mode                 string `validate:"omitempty,oneof=single multi"`
	ModelingAuthoritySet string
	ScenarioTime         string
}

// StorageConfig holds S3 compatible object storage settings for exports.
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string `validate:"required_if=Enabled true"`
	AccessKey    string `validate:"required_if=Enabled true"`
	SecretKey    string `validate:"required_if=Enabled true"`
	Prefix       string
	UseSSL       bool
	UsePathStyle bool
}

// CacheConfig holds lint report cache settings. Without Redis the cache is
// kept in memory.
type CacheConfig struct {
	Redis    bool
	Host     string
	Port     int `validate:"gte=0,lte=65535"`
	Password string
	DB       int           `validate:"gte=0"`
	TTL      time.Duration `validate:"gte=0"`
}

// TracingConfig holds OpenTelemetry tracing settings. Spans go to an OTLP
// gRPC collector; tracing is off by default.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string  `validate:"required_if=Enabled true"`
	Insecure    bool
	ServiceName string
	SampleRatio float64 `validate:"gte=0,lte=1"`
	LogSQL      bool
}

// SearchPaths are the directories searched for FileName.
func SearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "cimorm"))
	}
	return append(paths, "/etc/cimorm")
}

// DefaultFile is where Configure writes when no file is given.
func DefaultFile() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "cimorm", FileName)
	}
	return FileName
}

func newViper(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil && !missing(err) {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetEnvPrefix("CIMORM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("http.swagger", true)
	return v, nil
}

// missing reports whether err means that there is no config file to read.
func missing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// Load reads the configuration. An empty file searches SearchPaths.
// Priority (highest to lowest):
// 1. Environment variables with CIMORM_ prefix (e.g., CIMORM_DATABASE_PASSWORD)
// 2. cimorm.toml
// 3. Built-in defaults
func Load(file string) (*Config, error) {
	v, err := newViper(file)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Paths: PathsConfig{
			SchemaRoot:  v.GetString("paths.schema_root"),
			DatasetRoot: v.GetString("paths.dataset_root"),
		},
		Database: DatabaseConfig{
			Backend:  strings.ToLower(v.GetString("database.backend")),
			Path:     v.GetString("database.path"),
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
			Echo:     v.GetBool("database.echo"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			AllowOrigins:   v.GetStringSlice("http.allow_origins"),
			RateLimit:      v.GetInt("http.rate_limit"),
			Swagger:        v.GetBool("http.swagger"),
		},
		Export: ExportConfig{
			Mode:                 strings.ToLower(v.GetString("export.mode")),
			ModelingAuthoritySet: v.GetString("export.modeling_authority_set"),
			ScenarioTime:         v.GetString("export.scenario_time"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			Prefix:       v.GetString("storage.prefix"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Cache: CacheConfig{
			Redis:    v.GetBool("cache.redis"),
			Host:     v.GetString("cache.host"),
			Port:     v.GetInt("cache.port"),
			Password: v.GetString("cache.password"),
			DB:       v.GetInt("cache.db"),
			TTL:      v.GetDuration("cache.ttl"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			Endpoint:    v.GetString("tracing.endpoint"),
			Insecure:    v.GetBool("tracing.insecure"),
			ServiceName: v.GetString("tracing.service_name"),
			SampleRatio: v.GetFloat64("tracing.sample_ratio"),
			LogSQL:      v.GetBool("tracing.log_sql"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.Paths.SchemaRoot == "" {
		cfg.Paths.SchemaRoot = "schemata"
	}
	if cfg.Database.Backend == "" {
		cfg.Database.Backend = "sqlite"
	}
	if cfg.Database.Port == 0 {
		switch cfg.Database.Backend {
		case "postgres":
			cfg.Database.Port = 5432
		case "mysql", "mariadb":
			cfg.Database.Port = 3306
		}
	}
	if cfg.Database.Name == "" && cfg.Database.Backend != "sqlite" && cfg.Database.Backend != "memory" {
		cfg.Database.Name = "cim"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Exports of large datasets take a while to write.
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 5 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.Export.Mode == "" {
		cfg.Export.Mode = "single"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Cache.Host == "" {
		cfg.Cache.Host = "localhost"
	}
	if cfg.Cache.Port == 0 {
		cfg.Cache.Port = 6379
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = "localhost:4317"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "cimorm"
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration's struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Configure stores the schema and dataset roots in file, keeping the other
// settings of an existing file. Empty roots are left unchanged. An empty file
// writes DefaultFile.
func Configure(file, schemaRoot, datasetRoot string) (string, error) {
	if file == "" {
		file = DefaultFile()
	}
	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil && !missing(err) {
		return "", fmt.Errorf("error reading config file: %w", err)
	}

	if schemaRoot != "" {
		abs, err := filepath.Abs(schemaRoot)
		if err != nil {
			return "", err
		}
		v.Set("paths.schema_root", abs)
	}
	if datasetRoot != "" {
		abs, err := filepath.Abs(datasetRoot)
		if err != nil {
			return "", err
		}
		v.Set("paths.dataset_root", abs)
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(file); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return file, nil
}
