package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tunishield/internal/config"
)

// New builds the process logger. Production emits sampled JSON; development
// emits colored console lines. When cfg.File is set, entries are also
// written to a size-rotated file. The returned closer releases that file.
func New(cfg config.LogConfig, environment string) (*zap.Logger, io.Closer, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	var encCfg zapcore.EncoderConfig
	if environment == config.EnvDevelopment {
		encCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	consoleEnc := encCfg
	if environment == config.EnvDevelopment && cfg.Format != "json" {
		consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(cfg.Format, consoleEnc), zapcore.Lock(os.Stdout), level),
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		maxBytes := int64(cfg.MaxSizeMB) * 1024 * 1024
		if maxBytes <= 0 {
			maxBytes = 10 * 1024 * 1024
		}
		w, err := NewRotatingFileWriter(cfg.File, maxBytes, cfg.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, level))
		closer = w
	}

	core := zapcore.NewTee(cores...)
	if environment != config.EnvDevelopment {
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
	}

	logger := zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	return logger, closer, nil
}

func newEncoder(format string, cfg zapcore.EncoderConfig) zapcore.Encoder {
	if format == "json" {
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
