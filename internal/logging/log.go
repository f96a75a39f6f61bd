// Package logging wraps zap with the handful of helpers the application
// uses: named child loggers, a file-backed production logger and a no-op
// logger for tests.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the encoder, level and destination of the logger.
type Config struct {
	Environment string
	Level       string
	File        string
}

type Logger struct {
	*zap.Logger
	name string
}

// Named returns a child logger whose name is appended to the parent's with
// a dot.
func (log *Logger) Named(name string) *Logger {
	newName := name
	if log.name != "" {
		newName = fmt.Sprintf("%s.%s", log.name, name)
	}
	return &Logger{
		Logger: log.Logger.Named(name),
		name:   newName,
	}
}

func (log *Logger) GetName() string {
	return log.name
}

func (log *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		Logger: log.Logger.With(fields...),
		name:   log.name,
	}
}

// AtExit flushes buffered entries. Meant to be deferred right after the
// logger is built.
func (log *Logger) AtExit() {
	if log.Logger != nil {
		_ = log.Logger.Sync()
	}
}

// NewLoggerFromConfig builds a logger writing to cfg.File, or to stderr when
// no file is set. The "dev" environment uses a console encoder, anything
// else JSON.
func NewLoggerFromConfig(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	out := "stderr"
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir log dir: %w", err)
		}
		out = cfg.File
	}

	var zcfg zap.Config
	switch cfg.Environment {
	case "dev":
		zcfg = zap.Config{
			Level:       zap.NewAtomicLevelAt(level),
			Development: true,
			Encoding:    "console",
			EncoderConfig: zapcore.EncoderConfig{
				CallerKey:      "C",
				EncodeCaller:   zapcore.ShortCallerEncoder,
				EncodeDuration: zapcore.StringDurationEncoder,
				EncodeLevel:    zapcore.CapitalLevelEncoder,
				EncodeTime:     zapcore.ISO8601TimeEncoder,
				LevelKey:       "L",
				LineEnding:     "\n",
				MessageKey:     "M",
				NameKey:        "N",
				TimeKey:        "T",
			},
		}
	default:
		zcfg = zap.Config{
			Level:    zap.NewAtomicLevelAt(level),
			Encoding: "json",
			EncoderConfig: zapcore.EncoderConfig{
				CallerKey:      "caller",
				EncodeCaller:   zapcore.ShortCallerEncoder,
				EncodeDuration: zapcore.SecondsDurationEncoder,
				EncodeLevel:    zapcore.LowercaseLevelEncoder,
				EncodeName:     zapcore.FullNameEncoder,
				EncodeTime:     zapcore.ISO8601TimeEncoder,
				LevelKey:       "level",
				LineEnding:     "\n",
				MessageKey:     "message",
				NameKey:        "logger",
				StacktraceKey:  "stacktrace",
				TimeKey:        "@timestamp",
			},
		}
	}
	zcfg.OutputPaths = []string{out}
	zcfg.ErrorOutputPaths = []string{out}

	zl, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{Logger: zl}, nil
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}
