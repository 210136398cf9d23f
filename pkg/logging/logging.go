// Package logging holds the process-wide slog.Logger used by every package
// in this module. It is initialized once, lazily, the first time GetLogger
// is called if nothing has called Init yet.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var (
	defaultLogger atomic.Value // *slog.Logger
	initOnce      sync.Once
)

// Init configures the global logger at level, writing to w. Only the first
// call takes effect; later calls are no-ops, so a long-lived process can't
// have its logging destination swapped out from under an already-running
// batch worker.
func Init(level slog.Level, w io.Writer) {
	initOnce.Do(func() {
		h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
		defaultLogger.Store(slog.New(h))
	})
}

// GetLogger returns the global logger, initializing it at slog.LevelInfo to
// stderr if nothing has called Init yet.
func GetLogger() *slog.Logger {
	if l, ok := defaultLogger.Load().(*slog.Logger); ok {
		return l
	}
	Init(slog.LevelInfo, os.Stderr)
	return defaultLogger.Load().(*slog.Logger)
}

// ForTestsOnlyResetLogger clears the global logger so the next Init call
// (or GetLogger's lazy default) takes effect again. It exists only to give
// tests isolation between cases and must not be called from production code.
func ForTestsOnlyResetLogger() {
	defaultLogger = atomic.Value{}
	initOnce = sync.Once{}
}
