package snaplog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BuildDebug constructs the debug-only logger described in the run logger
// design: if DebugFile is set, messages append there; otherwise they go to
// stderr. Debug messages are only emitted when Debug is true in the config
// this logger was built from, so BuildDebug returns a nop logger when
// debugging is off.
func (cfg Config) BuildDebug() (*zap.Logger, error) {
	if !cfg.Debug {
		return zap.NewNop(), nil
	}

	var writer zapcore.WriteSyncer
	if cfg.DebugFile != "" {
		if err := EnsureLogPath(cfg.DebugFile); err != nil {
			writer = zapcore.AddSync(os.Stderr)
		} else {
			f, err := os.OpenFile(cfg.DebugFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				writer = zapcore.AddSync(os.Stderr)
			} else {
				writer = zapcore.AddSync(f)
			}
		}
	} else {
		writer = zapcore.AddSync(os.Stderr)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), writer, zapcore.DebugLevel)
	return zap.New(core, zap.AddCaller()), nil
}
