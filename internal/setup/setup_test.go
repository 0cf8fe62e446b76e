package setup

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBinary(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, BinaryName)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestGetClaudeDesktopConfigPath_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := GetClaudeDesktopConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Claude", "claude_desktop_config.json"), path)
}

func TestLoadClaudeDesktopConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		config, err := LoadClaudeDesktopConfig(filepath.Join(dir, "absent.json"))
		require.NoError(t, err)
		assert.Empty(t, config.MCPServers)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := LoadClaudeDesktopConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestConfigureClaudeDesktop(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "Claude", "claude_desktop_config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))

	existing := `{
  "globalShortcut": "Ctrl+Space",
  "mcpServers": {
    "filesystem": {"command": "npx", "args": ["-y", "@modelcontextprotocol/server-filesystem"]}
  }
}`
	require.NoError(t, os.WriteFile(configPath, []byte(existing), 0o600))

	binary := writeBinary(t, dir)
	written, err := ConfigureClaudeDesktop(Options{
		ConfigPath:   configPath,
		BinaryPath:   binary,
		GeminiAPIKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, configPath, written)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"Ctrl+Space"`, string(raw["globalShortcut"]))

	config, err := LoadClaudeDesktopConfig(configPath)
	require.NoError(t, err)
	require.Len(t, config.MCPServers, 2)
	assert.Equal(t, "npx", config.MCPServers["filesystem"].Command)

	entry := config.MCPServers[ServerKey]
	assert.Equal(t, binary, entry.Command)
	assert.Equal(t, map[string]string{"GEMINI_API_KEY": "secret"}, entry.Env)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestBuildServerConfig(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		env  map[string]string
	}{
		{"no env", Options{BinaryPath: "/bin/x"}, nil},
		{
			"all env",
			Options{BinaryPath: "/bin/x", CatalogDir: "/data", GeminiAPIKey: "k", LogFile: "/tmp/v.log"},
			map[string]string{"VETPAIN_CATALOG_DIR": "/data", "GEMINI_API_KEY": "k", "VETPAIN_LOG_FILE": "/tmp/v.log"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := BuildServerConfig(tt.opts)
			assert.Equal(t, "/bin/x", entry.Command)
			assert.Equal(t, tt.env, entry.Env)
		})
	}
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "claude_desktop_config.json")

	t.Run("not configured", func(t *testing.T) {
		status := GetStatus(configPath)
		assert.False(t, status.Configured)
		assert.False(t, status.Valid())
		assert.Contains(t, status.Issues, "Vet pain server is not configured in Claude Desktop")
	})

	t.Run("configured", func(t *testing.T) {
		binary := writeBinary(t, dir)
		_, err := ConfigureClaudeDesktop(Options{ConfigPath: configPath, BinaryPath: binary, CatalogDir: dir})
		require.NoError(t, err)

		status := GetStatus(configPath)
		assert.True(t, status.Configured)
		assert.True(t, status.BinaryFound)
		assert.False(t, status.AdvisoryEnabled)
		assert.Equal(t, dir, status.CatalogDir)
		assert.True(t, status.Valid(), status.Issues)
	})

	t.Run("missing binary and catalog", func(t *testing.T) {
		_, err := ConfigureClaudeDesktop(Options{
			ConfigPath: configPath,
			BinaryPath: filepath.Join(dir, "gone"),
			CatalogDir: filepath.Join(dir, "no-catalog"),
		})
		require.NoError(t, err)

		status := GetStatus(configPath)
		assert.True(t, status.Configured)
		assert.False(t, status.BinaryFound)
		assert.Len(t, status.Issues, 2)
	})
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "claude_desktop_config.json")
	binary := writeBinary(t, dir)

	run := func(input string, args ...string) (string, error) {
		cmd := NewCommand(strings.NewReader(input))
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	t.Run("cancelled", func(t *testing.T) {
		out, err := run("n\n", "claude-desktop", "--config", configPath, "--binary", binary)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration cancelled.")
		_, statErr := os.Stat(configPath)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("validate before configure", func(t *testing.T) {
		out, err := run("", "validate", "--config", configPath)
		require.Error(t, err)
		assert.Contains(t, out, "Configuration has issues")
	})

	t.Run("configure", func(t *testing.T) {
		out, err := run("", "claude-desktop", "--config", configPath, "--binary", binary, "--gemini-api-key", "k", "--yes")
		require.NoError(t, err)
		assert.Contains(t, out, "AI advisory: enabled")
		assert.Contains(t, out, "configured successfully")
	})

	t.Run("status", func(t *testing.T) {
		out, err := run("", "status", "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Claude Desktop: ✓ Configured")
		assert.Contains(t, out, "AI advisory: enabled")
	})

	t.Run("validate", func(t *testing.T) {
		out, err := run("", "validate", "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration is valid")
	})
}
