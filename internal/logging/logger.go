// Package logging builds the shared zap logger. Output goes to the
// console, to a timestamped file in the configured log directory, or
// both, depending on configuration.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	Level     string // debug, info, warn or error; unknown values fall back to info
	Directory string // log directory, created if missing
	ToConsole bool
	ToFile    bool
}

// New creates a SugaredLogger for the given config.
// Each call with ToFile set creates a fresh ytloop_<timestamp>.log file.
func New(cfg Config) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var paths []string
	if cfg.ToConsole {
		paths = append(paths, "stdout")
	}
	if cfg.ToFile {
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := fmt.Sprintf("ytloop_%s.log", time.Now().Format("20060102_150405"))
		paths = append(paths, filepath.Join(cfg.Directory, name))
	}
	if len(paths) == 0 {
		return zap.NewNop().Sugar(), nil
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zcfg.OutputPaths = paths
	zcfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Sugar(), nil
}
