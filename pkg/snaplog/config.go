// Package snaplog builds the zap loggers used by the engine and launch
// loop: a structured error/info logger writing to LogFile, and an optional
// debug logger writing to DebugFile (or stderr when unset).
package snaplog

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogFile is used when the configuration does not set LogFile.
const DefaultLogFile = "/var/log/snapback"

// Config controls where and how verbosely the loggers write.
type Config struct {
	LogFile   string
	DebugFile string
	Debug     bool
}

// Build constructs the run logger from cfg. Output always includes stdout
// so a foreground invocation (e.g. under the launch loop) shows progress;
// LogFile receives the same lines in JSON.
func (cfg Config) Build() (*zap.Logger, error) {
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = DefaultLogFile
	}

	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "json",
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    zap.NewProductionEncoderConfig(),
	}
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if err := EnsureLogPath(logPath); err != nil {
		zcfg.OutputPaths = []string{"stdout"}
	}

	logger, err := zcfg.Build()
	if err != nil {
		// Fall back to stdout-only logging rather than fail the run.
		zcfg.OutputPaths = []string{"stdout"}
		logger, err = zcfg.Build()
		if err != nil {
			return nil, err
		}
	}
	return logger, nil
}

// EnsureLogPath creates the parent directory for path if missing, and
// touches the file so later appends don't need to create it under a
// possibly-restrictive umask.
func EnsureLogPath(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
