// Package telemetry builds the zap.Logger the CLI hands to the core
// packages. The core packages themselves only depend on *zap.Logger (and
// default to zap.NewNop() when none is supplied); this package is what
// decides where those log lines actually go.
package telemetry

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how the CLI's logger writes.
type Config struct {
	Output     string // "stdout" or "file"
	Path       string // directory holding the log file, when Output == "file"
	Filename   string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig returns the logger defaults used when no flag, env var or
// config file overrides them.
func DefaultConfig() Config {
	return Config{
		Output:     "stdout",
		Path:       "./logs",
		Filename:   "seqringctl.log",
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 7,
	}
}

// New builds a *zap.Logger from cfg. Output "file" rotates through
// lumberjack; anything else writes to stdout.
func New(cfg Config) (*zap.Logger, error) {
	var writer zapcore.WriteSyncer
	switch cfg.Output {
	case "file":
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("telemetry: creating log directory: %w", err)
		}
		writer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Path + string(os.PathSeparator) + cfg.Filename,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	default:
		writer = zapcore.AddSync(os.Stdout)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339Nano))
	}
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), writer, level(cfg.Level))
	return zap.New(core, zap.AddCaller()), nil
}

func level(s string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
