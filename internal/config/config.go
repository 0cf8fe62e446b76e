package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// EnvPrefix prefixes every environment variable read by the Manager
const EnvPrefix = "VETPAIN"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager. A .env file in the working
// directory is loaded first when present.
func NewManager() (*Manager, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from the config file, the environment and defaults
func (m *Manager) loadConfig() error {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/vet-pain-mcp-server/")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the advisory key is also accepted under its conventional name
	if err := v.BindEnv("advisory.api_key", EnvPrefix+"_ADVISORY_API_KEY", "GEMINI_API_KEY"); err != nil {
		return fmt.Errorf("error binding advisory key: %w", err)
	}

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Advisory defaults
	v.SetDefault("advisory.enabled", true)
	v.SetDefault("advisory.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("advisory.api_key", "")
	v.SetDefault("advisory.model", "gemini-2.5-flash")
	v.SetDefault("advisory.timeout", "30s")
	v.SetDefault("advisory.rate_limit", 2)
	v.SetDefault("advisory.circuit_breaker.max_requests", 3)
	v.SetDefault("advisory.circuit_breaker.interval", "30s")
	v.SetDefault("advisory.circuit_breaker.timeout", "60s")
	v.SetDefault("advisory.circuit_breaker.min_requests", 3)
	v.SetDefault("advisory.circuit_breaker.failure_ratio", 0.6)

	// Cache defaults; an empty Redis URL keeps advisories in memory
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.memory_max_items", 500)

	v.SetDefault("sessions.max_sessions", 1000)
	v.SetDefault("catalog.dir", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// MCP defaults
	v.SetDefault("mcp.transport_type", "stdio")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetAdvisoryConfig returns advisory configuration
func (m *Manager) GetAdvisoryConfig() *domain.AdvisoryConfig {
	return &m.config.Advisory
}

// GetCacheConfig returns cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetLoggingConfig returns logging configuration
func (m *Manager) GetLoggingConfig() *domain.LoggingConfig {
	return &m.config.Logging
}

// AdvisoryEnabled reports whether the advisory collaborator should be wired:
// it must be enabled and have an API key
func (m *Manager) AdvisoryEnabled() bool {
	return m.config.Advisory.Enabled && m.config.Advisory.APIKey != ""
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid max body size: %d", config.Server.MaxBodyBytes)
	}

	if config.Advisory.Enabled && config.Advisory.APIKey != "" {
		if config.Advisory.BaseURL == "" {
			return fmt.Errorf("advisory base URL is required")
		}
		if config.Advisory.Model == "" {
			return fmt.Errorf("advisory model is required")
		}
		if config.Advisory.RateLimit <= 0 {
			return fmt.Errorf("invalid advisory rate limit: %d", config.Advisory.RateLimit)
		}
	}
	if ratio := config.Advisory.CircuitBreaker.FailureRatio; ratio <= 0 || ratio > 1 {
		return fmt.Errorf("invalid circuit breaker failure ratio: %v", ratio)
	}

	if config.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("invalid max sessions: %d", config.Sessions.MaxSessions)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	if strings.EqualFold(config.Logging.Output, "file") && config.Logging.Filename == "" {
		return fmt.Errorf("log filename is required for file output")
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}

var _ domain.ConfigManager = (*Manager)(nil)
