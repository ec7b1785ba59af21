package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/helpdesk/internal/config"
)

// NewLogger builds the service's JSON logger. Every entry carries the service
// name, version and environment so lines from several deployments can share a sink.
func NewLogger(app config.AppConfig, cfg config.LoggerConfig) (*zap.Logger, error) {
	return loggerConfig(app, cfg).Build()
}

func loggerConfig(app config.AppConfig, cfg config.LoggerConfig) zap.Config {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(strings.TrimSpace(cfg.Level))); err != nil {
		level = zapcore.InfoLevel
	}

	fields := map[string]interface{}{"service": app.Name}
	if app.Version != "" {
		fields["version"] = app.Version
	}
	if app.Env != "" {
		fields["env"] = app.Env
	}

	return zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: app.Env == "development",
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			LevelKey:      "level",
			TimeKey:       "ts",
			CallerKey:     "caller",
			StacktraceKey: "stacktrace",
			EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
				enc.AppendString(l.String())
			},
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    fields,
	}
}
