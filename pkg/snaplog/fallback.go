package snaplog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"os"
)

// Fallback returns a console logger writing to stdout, used when Build
// fails entirely (e.g. the configured LogFile directory is unwritable and
// even the stdout-only retry failed to construct, which should not happen
// in practice but must not panic a running backup).
func Fallback() *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.AddSync(os.Stdout),
		zapcore.InfoLevel,
	)
	return zap.New(core, zap.AddCaller())
}
