package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnvVars(t)

	m, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "gemini-2.5-flash", m.GetAdvisoryConfig().Model)
	assert.Equal(t, 24*time.Hour, m.GetCacheConfig().DefaultTTL)
	assert.Equal(t, 1000, cfg.Sessions.MaxSessions)
	assert.Equal(t, "info", m.GetLoggingConfig().Level)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.False(t, m.AdvisoryEnabled())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnvVars(t)

	t.Setenv("VETPAIN_ENVIRONMENT", "production")
	t.Setenv("VETPAIN_SERVER_PORT", "9191")
	t.Setenv("VETPAIN_ADVISORY_TIMEOUT", "5s")
	t.Setenv("VETPAIN_SESSIONS_MAX_SESSIONS", "42")
	t.Setenv("GEMINI_API_KEY", "from-env")

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Advisory.Timeout)
	assert.Equal(t, 42, cfg.Sessions.MaxSessions)
	assert.Equal(t, "from-env", cfg.Advisory.APIKey)
	assert.True(t, m.IsProduction())
	assert.True(t, m.AdvisoryEnabled())
}

func TestNewManager_ConfigFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	clearEnvVars(t)

	require.NoError(t, os.WriteFile("config.yaml", []byte(`
server:
  port: 7070
logging:
  level: debug
  format: text
`), 0o644))
	require.NoError(t, os.WriteFile(".env", []byte("VETPAIN_CACHE_MEMORY_MAX_ITEMS=7\n"), 0o644))
	defer os.Unsetenv("VETPAIN_CACHE_MEMORY_MAX_ITEMS")

	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, 7070, m.GetServerConfig().Port)
	assert.Equal(t, "debug", m.GetLoggingConfig().Level)
	assert.Equal(t, 7, m.GetCacheConfig().MemoryMaxItems)
}

func TestManager_Validate(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnvVars(t)

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"invalid port", map[string]string{"VETPAIN_SERVER_PORT": "70000"}, "invalid server port"},
		{"invalid log level", map[string]string{"VETPAIN_LOGGING_LEVEL": "loud"}, "invalid log level"},
		{"file output without filename", map[string]string{"VETPAIN_LOGGING_OUTPUT": "file"}, "log filename"},
		{"no sessions", map[string]string{"VETPAIN_SESSIONS_MAX_SESSIONS": "0"}, "max sessions"},
		{"advisory rate limit", map[string]string{"GEMINI_API_KEY": "k", "VETPAIN_ADVISORY_RATE_LIMIT": "0"}, "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			m, err := NewManager()
			require.NoError(t, err)

			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
