package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vet-pain-mcp-server/internal/domain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		cfg           domain.LoggingConfig
		expectedLevel logrus.Level
		expectText    bool
		wantErr       bool
	}{
		{
			name:          "defaults",
			cfg:           domain.LoggingConfig{},
			expectedLevel: logrus.InfoLevel,
		},
		{
			name:          "debug text to stderr",
			cfg:           domain.LoggingConfig{Level: "DEBUG", Format: "text", Output: "stderr"},
			expectedLevel: logrus.DebugLevel,
			expectText:    true,
		},
		{
			name:    "invalid level",
			cfg:     domain.LoggingConfig{Level: "verbose"},
			wantErr: true,
		},
		{
			name:    "file output without filename",
			cfg:     domain.LoggingConfig{Output: "file"},
			wantErr: true,
		},
		{
			name:    "unknown output",
			cfg:     domain.LoggingConfig{Output: "syslog"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedLevel, logger.GetLevel())
			_, isText := logger.Formatter.(*logrus.TextFormatter)
			assert.Equal(t, tt.expectText, isText)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vetpain.log")

	logger, err := New(domain.LoggingConfig{Output: "file", Filename: path, MaxSize: 1, MaxBackups: 1})
	require.NoError(t, err)

	rotator, ok := logger.Out.(*lumberjack.Logger)
	require.True(t, ok)
	defer rotator.Close()

	logger.WithField("scale_id", "cmps-sf").Info("Completed scale interpretation")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scale_id":"cmps-sf"`)
}
