// Package config holds the aggregator configuration and the registry of
// remote collections to ingest.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/commandcenter/aggregator/models"
)

// Source describes one remote source and the collections to pull from it.
type Source struct {
	SourceID    string   `yaml:"sourceId"`
	Collections []string `yaml:"collections"`
}

// Config holds aggregator configuration. Sources are fixed for the process
// lifetime; everything else tunes the pipeline.
type Config struct {
	ProviderBaseURL string
	APIToken        string
	Sources         []Source

	RecordsPerCollectionCap int
	PageSize                int
	CacheTTL                time.Duration
	FuzzyThreshold          float64
	Timeout                 time.Duration

	// DataDir enables the on-disk cache store when non-empty; an empty
	// value keeps the cache in process memory only.
	DataDir string

	ListenAddr  string
	MetricsAddr string
	UserAgent   string
	Verbose     bool
}

// DefaultConfig returns conservative defaults matching the hosted provider.
func DefaultConfig() *Config {
	return &Config{
		ProviderBaseURL:         "https://api.airtable.com",
		RecordsPerCollectionCap: 2500,
		PageSize:                20,
		CacheTTL:                time.Hour,
		FuzzyThreshold:          0.3,
		Timeout:                 10 * time.Second,
		ListenAddr:              ":8080",
		MetricsAddr:             "",
		UserAgent:               "command-center-aggregator/1.0",
	}
}

// fileConfig mirrors Config for YAML decoding; durations are written as
// strings like "1h" or "10s".
type fileConfig struct {
	ProviderBaseURL         *string  `yaml:"providerBaseUrl"`
	APIToken                *string  `yaml:"apiToken"`
	Sources                 []Source `yaml:"sources"`
	RecordsPerCollectionCap *int     `yaml:"recordsPerCollectionCap"`
	PageSize                *int     `yaml:"pageSize"`
	CacheTTL                *string  `yaml:"cacheTtl"`
	FuzzyThreshold          *float64 `yaml:"fuzzyThreshold"`
	Timeout                 *string  `yaml:"timeout"`
	DataDir                 *string  `yaml:"dataDir"`
	ListenAddr              *string  `yaml:"listenAddr"`
	MetricsAddr             *string  `yaml:"metricsAddr"`
	UserAgent               *string  `yaml:"userAgent"`
	Verbose                 *bool    `yaml:"verbose"`
}

// LoadFile overlays YAML settings from path onto the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if fc.ProviderBaseURL != nil {
		cfg.ProviderBaseURL = *fc.ProviderBaseURL
	}
	if fc.APIToken != nil {
		cfg.APIToken = *fc.APIToken
	}
	if len(fc.Sources) > 0 {
		cfg.Sources = fc.Sources
	}
	if fc.RecordsPerCollectionCap != nil {
		cfg.RecordsPerCollectionCap = *fc.RecordsPerCollectionCap
	}
	if fc.PageSize != nil {
		cfg.PageSize = *fc.PageSize
	}
	if fc.CacheTTL != nil {
		ttl, err := time.ParseDuration(*fc.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("parse cacheTtl: %w", err)
		}
		cfg.CacheTTL = ttl
	}
	if fc.FuzzyThreshold != nil {
		cfg.FuzzyThreshold = *fc.FuzzyThreshold
	}
	if fc.Timeout != nil {
		timeout, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fc.DataDir != nil {
		cfg.DataDir = *fc.DataDir
	}
	if fc.ListenAddr != nil {
		cfg.ListenAddr = *fc.ListenAddr
	}
	if fc.MetricsAddr != nil {
		cfg.MetricsAddr = *fc.MetricsAddr
	}
	if fc.UserAgent != nil {
		cfg.UserAgent = *fc.UserAgent
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	return cfg, nil
}

// Handles flattens the source registry into collection handles, in
// registry order.
func (c *Config) Handles() []models.CollectionHandle {
	handles := make([]models.CollectionHandle, 0, len(c.Sources))
	for _, src := range c.Sources {
		for _, coll := range src.Collections {
			handles = append(handles, models.CollectionHandle{
				SourceID:     src.SourceID,
				CollectionID: coll,
			})
		}
	}
	return handles
}

// Validate ensures all configuration values are coherent. Validation
// failures are fatal at startup.
func (c *Config) Validate() error {
	if c.ProviderBaseURL == "" {
		return fmt.Errorf("provider base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.ProviderBaseURL)
	if err != nil {
		return fmt.Errorf("invalid provider base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("provider base URL must include a host")
	}

	if len(c.Handles()) == 0 {
		return fmt.Errorf("at least one source collection must be configured")
	}
	for _, src := range c.Sources {
		if src.SourceID == "" {
			return fmt.Errorf("source with empty sourceId")
		}
		for _, coll := range src.Collections {
			if coll == "" {
				return fmt.Errorf("source %s has an empty collection id", src.SourceID)
			}
		}
	}

	if c.RecordsPerCollectionCap <= 0 {
		return fmt.Errorf("records per collection cap must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy threshold must be within [0, 1]")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// EnvString returns the value of an environment variable and whether it
// was set.
func EnvString(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	return value, ok
}

// EnvInt parses an integer environment variable.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return value, true, nil
}

// EnvDuration parses a duration environment variable.
func EnvDuration(name string) (time.Duration, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a duration: %w", name, err)
	}
	return value, true, nil
}
