// Package config loads engine configuration from the environment and from
// an optional YAML file. Environment variables win over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds engine configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Database  DatabaseConfig  `yaml:"database"`
	Causal    CausalConfig    `yaml:"causal"`
	Notify    NotifyConfig    `yaml:"notify"`
	Identity  IdentityConfig  `yaml:"identity"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	URL          string `yaml:"url"`
	Serializable bool   `yaml:"serializable"`
}

type CausalConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

type NotifyConfig struct {
	RedisAddr     string  `yaml:"redis_addr"`
	RedisPassword string  `yaml:"redis_password"`
	RedisDB       int     `yaml:"redis_db"`
	Queue         string  `yaml:"queue"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

type IdentityConfig struct {
	TokenSecret string `yaml:"token_secret"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel: "INFO",
		Database: DatabaseConfig{
			Driver:       "postgres",
			URL:          "postgres://delta@localhost:5432/delta?sslmode=disable",
			Serializable: true,
		},
		Causal: CausalConfig{MaxDepth: 10},
		Notify: NotifyConfig{
			Queue:         "delta:notifications",
			RatePerSecond: 5,
		},
		Telemetry: TelemetryConfig{Endpoint: "localhost:4317"},
	}
}

// Load returns the defaults overridden by environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadFile reads a YAML file over the defaults and then applies environment
// overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &c.LogLevel)
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.URL)
	str("REDIS_ADDR", &c.Notify.RedisAddr)
	str("REDIS_PASSWORD", &c.Notify.RedisPassword)
	str("NOTIFY_QUEUE", &c.Notify.Queue)
	str("TOKEN_SECRET", &c.Identity.TokenSecret)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.Endpoint)

	if v := os.Getenv("DATABASE_SERIALIZABLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DATABASE_SERIALIZABLE: %w", err)
		}
		c.Database.Serializable = b
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OTEL_ENABLED: %w", err)
		}
		c.Telemetry.Enabled = b
	}
	if v := os.Getenv("CAUSAL_MAX_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CAUSAL_MAX_DEPTH: %w", err)
		}
		c.Causal.MaxDepth = n
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Notify.RedisDB = n
	}
	if v := os.Getenv("NOTIFY_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("NOTIFY_RATE: %w", err)
		}
		c.Notify.RatePerSecond = f
	}
	return nil
}

// Validate checks values that have no safe fallback.
func (c *Config) Validate() error {
	if c.Causal.MaxDepth < 1 {
		return fmt.Errorf("causal max depth must be at least 1, got %d", c.Causal.MaxDepth)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(c.LogLevel)))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
