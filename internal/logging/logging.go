// Package logging provides the daemon's structured logger: a thin
// wrapper over zap, switching between console and JSON encoding and
// offering per-component scoping via With.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the root logger is constructed.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// Format is "console" or "json". Defaults to "console" when stderr
	// is a terminal, "json" otherwise.
	Format string
}

var (
	once    sync.Once
	root    *zap.Logger
	rootErr error
)

// Default returns the process-wide default logger, building it on first
// use from environment-derived defaults.
func Default() *zap.Logger {
	once.Do(func() {
		root, rootErr = New(Config{})
		if rootErr != nil {
			root = zap.NewNop()
		}
	})
	return root
}

// New builds a logger from cfg, filling in defaults for any empty field.
func New(cfg Config) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)
	format := cfg.Format
	if format == "" {
		format = detectFormat()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller()), nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// detectFormat prefers console output on an interactive terminal and
// JSON otherwise (matching the common container/service convention).
func detectFormat() string {
	if fi, err := os.Stderr.Stat(); err == nil && (fi.Mode()&os.ModeCharDevice) != 0 {
		return "console"
	}
	return "json"
}

// Component returns a child logger tagged with a "component" field,
// used by each package (registry, discovery, server, procmon) to scope
// its log lines.
func Component(base *zap.Logger, name string) *zap.Logger {
	return base.With(zap.String("component", name))
}
