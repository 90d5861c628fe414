// Package logging provides the shared structured logger for codescope.
// Logs are written to a rotating file under .codescope/ and echoed to
// stderr when it is an interactive terminal. Stdout is never used, so
// MCP stdio transports stay clean.
package logging

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logDir = ".codescope"

var (
	global *zap.Logger
	once   sync.Once
)

// Get returns the singleton logger, initializing it on first use.
func Get() *zap.Logger {
	once.Do(func() {
		global = build(os.Getenv("CODESCOPE_LOG_LEVEL"))
	})
	return global
}

// Sugar returns the singleton logger in sugared form.
func Sugar() *zap.SugaredLogger {
	return Get().Sugar()
}

// SetForTesting swaps the global logger. Tests use zap.NewNop().
func SetForTesting(l *zap.Logger) {
	once.Do(func() {})
	global = l
}

func build(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(level); err == nil && level != "" {
		lvl = parsed
	}

	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "codescope.log"),
		MaxSize:    15, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotating), lvl),
	}

	// Echo to stderr only when a human is watching.
	if term.IsTerminal(int(os.Stderr.Fd())) {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.AddSync(os.Stderr),
			lvl,
		))
	}

	return zap.New(zapcore.NewTee(cores...))
}

// Sync flushes any buffered log entries. Safe to call on exit.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
