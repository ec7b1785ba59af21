package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/helpdesk/internal/config"
)

func TestLoggerConfigStampsServiceIdentity(t *testing.T) {
	cfg := loggerConfig(
		config.AppConfig{Name: "helpdesk", Version: "1.4.0", Env: "production"},
		config.LoggerConfig{Level: " DEBUG "},
	)

	assert.Equal(t, map[string]interface{}{
		"service": "helpdesk",
		"version": "1.4.0",
		"env":     "production",
	}, cfg.InitialFields)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())
	assert.False(t, cfg.Development)
	assert.Equal(t, "json", cfg.Encoding)
}

func TestLoggerConfigDefaults(t *testing.T) {
	cfg := loggerConfig(config.AppConfig{Name: "helpdesk", Env: "development"}, config.LoggerConfig{Level: "verbose"})

	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
	assert.True(t, cfg.Development)
	assert.NotContains(t, cfg.InitialFields, "version")
}

func TestNewLoggerBuilds(t *testing.T) {
	logger, err := NewLogger(config.AppConfig{Name: "helpdesk"}, config.LoggerConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
