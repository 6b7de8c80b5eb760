// Package config provides configuration loading and validation for the
// meteoreg service. Configuration is read from YAML files with sensible
// defaults; the CLI layer additionally binds environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/windrose/meteoreg/internal/catalog"
	"github.com/windrose/meteoreg/internal/store"
)

// Config represents the complete service configuration.
type Config struct {
	// API server configuration
	API APIConfig `yaml:"api" json:"api"`

	// Database configuration
	Database store.Config `yaml:"database" json:"database"`

	// Catalog seed configuration
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Sampler configuration
	Sampler SamplerConfig `yaml:"sampler" json:"sampler"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	// Enable API server
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port"`

	// Server timeouts
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`

	// CORS settings
	CORS CORSConfig `yaml:"cors" json:"cors"`

	// Auth settings
	Auth AuthConfig `yaml:"auth" json:"auth"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
}

// AuthConfig holds API-key authentication settings. Keys are stored as
// bcrypt hashes, never in the clear.
type AuthConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Bcrypt hashes of accepted API keys.
	APIKeyHashes []string `yaml:"api_key_hashes" json:"api_key_hashes"`
}

// CatalogConfig declares the seed metric definitions for the canonical
// registries. Aggregations are keyed by base metric name (any casing) and
// list which aggregated variants to derive; partial lists the full names
// retained in the partial registry.
type CatalogConfig struct {
	Metrics      []catalog.Definition `yaml:"metrics" json:"metrics"`
	Aggregations map[string][]string  `yaml:"aggregations" json:"aggregations"`
	Partial      []string             `yaml:"partial" json:"partial"`
}

// Seed converts the catalog configuration into a catalog seed, validating
// aggregation names and normalizing map keys to metric full names.
func (c CatalogConfig) Seed() (catalog.Seed, error) {
	seed := catalog.Seed{
		Metrics:      c.Metrics,
		Aggregations: make(map[string][]catalog.Aggregation, len(c.Aggregations)),
		Partial:      c.Partial,
	}

	for name, aggs := range c.Aggregations {
		key := catalog.NormalizeName(name)
		parsed := make([]catalog.Aggregation, 0, len(aggs))
		for _, raw := range aggs {
			agg, err := catalog.ParseAggregation(raw)
			if err != nil {
				return catalog.Seed{}, fmt.Errorf("catalog aggregations for %q: %w", name, err)
			}
			parsed = append(parsed, agg)
		}
		seed.Aggregations[key] = parsed
	}
	return seed, nil
}

// SamplerConfig holds the synthetic reading generator settings.
type SamplerConfig struct {
	// Enable the sampler
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Cron expression controlling sampling cadence
	Schedule string `yaml:"schedule" json:"schedule"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Include source positions in log records
	AddSource bool `yaml:"add_source" json:"add_source"`
}

// Default returns a configuration with sensible defaults. The catalog seed
// defaults to the canonical meteorological metric set.
func Default() *Config {
	defaultSeed := catalog.DefaultSeed()

	aggregations := make(map[string][]string, len(defaultSeed.Aggregations))
	for name, aggs := range defaultSeed.Aggregations {
		raw := make([]string, len(aggs))
		for i, a := range aggs {
			raw[i] = a.String()
		}
		aggregations[name] = raw
	}

	return &Config{
		API: APIConfig{
			Enabled:      true,
			ListenAddr:   "127.0.0.1",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key"},
			},
			Auth: AuthConfig{
				Enabled: false,
			},
		},
		Database: store.DefaultConfig(),
		Catalog: CatalogConfig{
			Metrics:      defaultSeed.Metrics,
			Aggregations: aggregations,
			Partial:      defaultSeed.Partial,
		},
		Sampler: SamplerConfig{
			Enabled:  false,
			Schedule: "@every 1m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load loads configuration from a file, falling back to defaults when the
// file does not exist.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate API configuration
	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			return fmt.Errorf("API port must be between 1 and 65535")
		}
		if c.API.ListenAddr == "" {
			return fmt.Errorf("API listen address is required when API is enabled")
		}
	}
	if c.API.Auth.Enabled && len(c.API.Auth.APIKeyHashes) == 0 {
		return fmt.Errorf("at least one API key hash is required when auth is enabled")
	}

	// Validate catalog configuration
	if len(c.Catalog.Metrics) == 0 {
		return fmt.Errorf("catalog must declare at least one metric")
	}
	for i, def := range c.Catalog.Metrics {
		if def.Name == "" {
			return fmt.Errorf("catalog metric %d: name is required", i)
		}
		if def.Unit == "" {
			return fmt.Errorf("catalog metric %q: unit is required", def.Name)
		}
	}
	if _, err := c.Catalog.Seed(); err != nil {
		return err
	}

	// Validate sampler configuration
	if c.Sampler.Enabled && c.Sampler.Schedule == "" {
		return fmt.Errorf("sampler schedule is required when sampler is enabled")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
