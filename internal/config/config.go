// Package config handles file and environment configuration for idler.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Delete modes.
const (
	DeleteModeNoop     = "noop"
	DeleteModeProvider = "provider"
)

// Config is the root configuration structure.
type Config struct {
	AWS        AWSConfig        `toml:"aws" yaml:"aws"`
	Server     ServerConfig     `toml:"server" yaml:"server"`
	Aggregator AggregatorConfig `toml:"aggregator" yaml:"aggregator"`
	Delete     DeleteConfig     `toml:"delete" yaml:"delete"`
	Dashboard  DashboardConfig  `toml:"dashboard" yaml:"dashboard"`
	OTEL       OTELConfig       `toml:"otel" yaml:"otel"`
	Log        LogConfig        `toml:"log" yaml:"log"`
}

// AWSConfig holds AWS provider settings.
type AWSConfig struct {
	Region  string `toml:"region" yaml:"region"`
	Profile string `toml:"profile" yaml:"profile"`
}

// ServerConfig holds the aggregator HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// AggregatorConfig controls how listings are merged.
type AggregatorConfig struct {
	// Strict fails the whole listing when any source fails.
	Strict          bool          `toml:"strict" yaml:"strict"`
	QueryTimeoutStr string        `toml:"query_timeout" yaml:"query_timeout"`
	QueryTimeout    time.Duration `toml:"-" yaml:"-"`
}

// DeleteConfig selects how deletions are handled.
type DeleteConfig struct {
	Mode string `toml:"mode" yaml:"mode"`
}

// DashboardConfig holds client-side settings.
type DashboardConfig struct {
	APIURL     string        `toml:"api_url" yaml:"api_url"`
	TimeoutStr string        `toml:"timeout" yaml:"timeout"`
	Timeout    time.Duration `toml:"-" yaml:"-"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string       `toml:"endpoint" yaml:"endpoint"`
	Insecure    bool         `toml:"insecure" yaml:"insecure"`
	ServiceName string       `toml:"service_name" yaml:"service_name"`
	Traces      TracesConfig `toml:"traces" yaml:"traces"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `toml:"enabled" yaml:"enabled"`
	SampleRate float64 `toml:"sample_rate" yaml:"sample_rate"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	_ = parseDurations(cfg)
	return cfg
}

// Load reads a TOML or YAML config file, applies environment overrides
// and defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return toml.Unmarshal(data, cfg)
	}
}

// LoadDotEnv loads environment files, ignoring the ones that do not exist.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.AWS.Region, "AWS_REGION")
	setString(&cfg.AWS.Profile, "AWS_PROFILE")
	setString(&cfg.Server.Addr, "IDLER_SERVER_ADDR")
	setString(&cfg.Aggregator.QueryTimeoutStr, "IDLER_QUERY_TIMEOUT")
	setString(&cfg.Delete.Mode, "IDLER_DELETE_MODE")
	setString(&cfg.Dashboard.APIURL, "IDLER_API_URL")
	setString(&cfg.Dashboard.TimeoutStr, "IDLER_API_TIMEOUT")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Log.Level, "IDLER_LOG_LEVEL")

	if v := os.Getenv("IDLER_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse IDLER_STRICT %q: %w", v, err)
		}
		cfg.Aggregator.Strict = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Aggregator.QueryTimeoutStr == "" {
		cfg.Aggregator.QueryTimeoutStr = "30s"
	}
	if cfg.Delete.Mode == "" {
		cfg.Delete.Mode = DeleteModeNoop
	}
	if cfg.Dashboard.APIURL == "" {
		cfg.Dashboard.APIURL = "http://localhost:8080"
	}
	if cfg.Dashboard.TimeoutStr == "" {
		cfg.Dashboard.TimeoutStr = "30s"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "idler"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func parseDurations(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Aggregator.QueryTimeoutStr)
	if err != nil {
		return fmt.Errorf("parse query_timeout %q: %w", cfg.Aggregator.QueryTimeoutStr, err)
	}
	cfg.Aggregator.QueryTimeout = d

	d, err = time.ParseDuration(cfg.Dashboard.TimeoutStr)
	if err != nil {
		return fmt.Errorf("parse dashboard timeout %q: %w", cfg.Dashboard.TimeoutStr, err)
	}
	cfg.Dashboard.Timeout = d
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("aws: region required")
	}
	if c.Aggregator.QueryTimeout <= 0 {
		return fmt.Errorf("aggregator: query_timeout must be positive (got %v)", c.Aggregator.QueryTimeout)
	}
	switch c.Delete.Mode {
	case DeleteModeNoop, DeleteModeProvider:
	default:
		return fmt.Errorf("delete: mode must be %q or %q (got %q)", DeleteModeNoop, DeleteModeProvider, c.Delete.Mode)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	return nil
}
