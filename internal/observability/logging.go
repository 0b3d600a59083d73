package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meditrack/staffcore/internal/config"
)

const (
	encodingJSON    = "json"
	encodingConsole = "console"
)

// NewLogger builds the process logger. Development environments get a
// colored console encoder and caller info; everything else logs JSON.
// LOG_FORMAT overrides the encoder either way.
func NewLogger(cfg config.LoggerConfig, appEnv string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	dev := isDevelopment(appEnv)
	encoding := encodingJSON
	if dev {
		encoding = encodingConsole
	}
	switch f := strings.ToLower(cfg.Format); f {
	case "":
	case encodingJSON, encodingConsole:
		encoding = f
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "ts",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if encoding == encodingConsole {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       dev,
		DisableCaller:     !dev,
		DisableStacktrace: !dev,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	if appEnv != "" {
		zapCfg.InitialFields = map[string]any{"env": appEnv}
	}
	return zapCfg.Build()
}

func isDevelopment(appEnv string) bool {
	switch strings.ToLower(appEnv) {
	case "development", "dev", "local":
		return true
	}
	return false
}
