// Package config provides configuration management for the servers.
// This file contains the lightweight configuration for the stdio MCP server.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It needs no config file and no external services; the advisory tool is
// enabled only when a Gemini API key is present.
type LiteConfig struct {
	// Reference data
	CatalogDir string // Optional directory replacing the embedded catalog

	// Sessions and cache
	MaxSessions   int           // Maximum live assessment sessions
	CacheMaxItems int           // Maximum advisories held in memory
	CacheTTL      time.Duration // Advisory cache TTL
	RedisURL      string        // Optional shared advisory cache

	// Advisory settings
	GeminiAPIKey    string        // Optional: enables request_advisory
	AdvisoryModel   string        // Gemini model name
	AdvisoryBaseURL string        // Gemini API base URL
	AdvisoryTimeout time.Duration // Upstream request timeout

	// Transport settings
	Transport string // Transport type: stdio

	// Logging; stdout carries the protocol so logs go to stderr or a file
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
	LogFile   string // Optional rotated log file
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	return &LiteConfig{
		MaxSessions:     200,
		CacheMaxItems:   500,
		CacheTTL:        24 * time.Hour,
		AdvisoryModel:   "gemini-2.5-flash",
		AdvisoryBaseURL: "https://generativelanguage.googleapis.com",
		AdvisoryTimeout: 30 * time.Second,
		Transport:       "stdio",
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	cfg.CatalogDir = os.Getenv("VETPAIN_CATALOG_DIR")

	if v := os.Getenv("VETPAIN_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSessions = n
		}
	}
	if v := os.Getenv("VETPAIN_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("VETPAIN_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	cfg.RedisURL = os.Getenv("VETPAIN_REDIS_URL")

	// Advisory
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if v := os.Getenv("VETPAIN_ADVISORY_MODEL"); v != "" {
		cfg.AdvisoryModel = v
	}
	if v := os.Getenv("VETPAIN_ADVISORY_BASE_URL"); v != "" {
		cfg.AdvisoryBaseURL = v
	}
	if v := os.Getenv("VETPAIN_ADVISORY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AdvisoryTimeout = d
		}
	}

	if v := os.Getenv("VETPAIN_TRANSPORT"); v != "" {
		cfg.Transport = v
	}

	// Logging
	if v := os.Getenv("VETPAIN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("VETPAIN_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	cfg.LogFile = os.Getenv("VETPAIN_LOG_FILE")

	return cfg
}

// LiteConfigFromConfig derives the stdio server settings from a full
// configuration. Console log output is moved to stderr.
func LiteConfigFromConfig(cfg *domain.Config) *LiteConfig {
	lite := DefaultLiteConfig()

	lite.CatalogDir = cfg.Catalog.Dir
	lite.MaxSessions = cfg.Sessions.MaxSessions
	lite.CacheMaxItems = cfg.Cache.MemoryMaxItems
	lite.CacheTTL = cfg.Cache.DefaultTTL
	lite.RedisURL = cfg.Cache.RedisURL

	if cfg.Advisory.Enabled {
		lite.GeminiAPIKey = cfg.Advisory.APIKey
	}
	lite.AdvisoryModel = cfg.Advisory.Model
	lite.AdvisoryBaseURL = cfg.Advisory.BaseURL
	lite.AdvisoryTimeout = cfg.Advisory.Timeout

	if cfg.MCP.TransportType != "" {
		lite.Transport = cfg.MCP.TransportType
	}

	lite.LogLevel = cfg.Logging.Level
	lite.LogFormat = cfg.Logging.Format
	if cfg.Logging.Output == "file" {
		lite.LogFile = cfg.Logging.Filename
	}
	return lite
}

// AdvisoryEnabled reports whether an API key is configured
func (c *LiteConfig) AdvisoryEnabled() bool {
	return c.GeminiAPIKey != ""
}

// LoggingConfig converts the lite settings into a logging configuration
func (c *LiteConfig) LoggingConfig() domain.LoggingConfig {
	cfg := domain.LoggingConfig{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: "stderr",
	}
	if c.LogFile != "" {
		cfg.Output = "file"
		cfg.Filename = filepath.Clean(c.LogFile)
		cfg.MaxSize = 10
		cfg.MaxBackups = 3
		cfg.MaxAge = 14
		cfg.Compress = true
	}
	return cfg
}

// AdvisoryConfig converts the lite settings into an advisory configuration
func (c *LiteConfig) AdvisoryConfig() domain.AdvisoryConfig {
	return domain.AdvisoryConfig{
		Enabled:   c.AdvisoryEnabled(),
		BaseURL:   c.AdvisoryBaseURL,
		APIKey:    c.GeminiAPIKey,
		Model:     c.AdvisoryModel,
		Timeout:   c.AdvisoryTimeout,
		RateLimit: 2,
	}
}

// CacheConfig converts the lite settings into a cache configuration
func (c *LiteConfig) CacheConfig() domain.CacheConfig {
	return domain.CacheConfig{
		RedisURL:       c.RedisURL,
		DefaultTTL:     c.CacheTTL,
		MaxRetries:     3,
		PoolSize:       4,
		PoolTimeout:    4 * time.Second,
		MemoryMaxItems: c.CacheMaxItems,
	}
}
