// Package logger provides leveled, component-scoped logging for the
// gateway. It is a thin wrapper over zap so that call sites can tag every
// line with the subsystem that produced it.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.Mutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	root  *zap.SugaredLogger
)

func init() {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	root = zap.New(core).Sugar()
}

// SetDebug enables or disables debug-level output.
func SetDebug(debug bool) {
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
}

// C returns a logger scoped to the named component.
func C(component string) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return root.With("component", component)
}

// Sync flushes buffered log entries. Safe to call on shutdown.
func Sync() {
	_ = root.Sync()
}
