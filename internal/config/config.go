package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the flagdeck API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Images   ImagesConfig   `yaml:"images"`
	Gallery  GalleryConfig  `yaml:"gallery"`
	Sessions SessionsConfig `yaml:"sessions"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the image cache store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // memory, valkey, redis (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	Namespace        string   `yaml:"namespace"` // key prefix on shared servers (default: "flagdeck:")
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// DatasetConfig points at the record table loaded at startup.
type DatasetConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // csv, parquet (default: from extension)
}

// ImagesConfig holds remote image fetch settings.
type ImagesConfig struct {
	FetchTimeoutSec int    `yaml:"fetch_timeout_sec"`
	MaxBytes        int64  `yaml:"max_bytes"`
	UserAgent       string `yaml:"user_agent"`
	CacheEnabled    *bool  `yaml:"cache_enabled"` // default: true
	CacheTTLSec     int    `yaml:"cache_ttl_sec"`
}

// GalleryConfig holds gallery paging settings.
type GalleryConfig struct {
	DefaultPageSize  int `yaml:"default_page_size"`
	MaxPageSize      int `yaml:"max_page_size"`
	FetchConcurrency int `yaml:"fetch_concurrency"` // 1 = sequential
}

// SessionsConfig holds session registry settings.
type SessionsConfig struct {
	IdleTTLSec  int `yaml:"idle_ttl_sec"`
	MaxSessions int `yaml:"max_sessions"` // 0 = unlimited
}

// ExportConfig holds flagged-record export settings.
type ExportConfig struct {
	Filename string `yaml:"filename"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.Namespace == "" {
		c.Database.Namespace = "flagdeck:"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Dataset.Path == "" {
		c.Dataset.Path = "image_data.csv"
	}
	if c.Images.FetchTimeoutSec <= 0 {
		c.Images.FetchTimeoutSec = 10
	}
	if c.Images.MaxBytes <= 0 {
		c.Images.MaxBytes = 20 << 20
	}
	if c.Images.CacheEnabled == nil {
		enabled := true
		c.Images.CacheEnabled = &enabled
	}
	if c.Images.CacheTTLSec <= 0 {
		c.Images.CacheTTLSec = 3600
	}
	if c.Gallery.DefaultPageSize <= 0 {
		c.Gallery.DefaultPageSize = 20
	}
	if c.Gallery.MaxPageSize <= 0 {
		c.Gallery.MaxPageSize = 100
	}
	if c.Gallery.FetchConcurrency <= 0 {
		c.Gallery.FetchConcurrency = 1
	}
	if c.Sessions.IdleTTLSec <= 0 {
		c.Sessions.IdleTTLSec = 1800
	}
	if c.Export.Filename == "" {
		c.Export.Filename = "flagged_images.csv"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "memory":
	case "valkey", "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be \"memory\", \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	switch c.Dataset.Format {
	case "", "csv", "parquet":
	default:
		return fmt.Errorf("dataset.format must be \"csv\" or \"parquet\", got %q", c.Dataset.Format)
	}
	if c.Gallery.DefaultPageSize > c.Gallery.MaxPageSize {
		return fmt.Errorf("gallery.default_page_size %d exceeds gallery.max_page_size %d",
			c.Gallery.DefaultPageSize, c.Gallery.MaxPageSize)
	}
	if c.Sessions.MaxSessions < 0 {
		return fmt.Errorf("sessions.max_sessions must be non-negative, got %d", c.Sessions.MaxSessions)
	}
	return nil
}

// FetchTimeout returns the per-image fetch bound.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Images.FetchTimeoutSec) * time.Second
}

// CacheTTL returns how long fetched images stay memoized.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Images.CacheTTLSec) * time.Second
}

// SessionIdleTTL returns how long an untouched session survives.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.Sessions.IdleTTLSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
