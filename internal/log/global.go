package log

import (
	"log/slog"
	"sync/atomic"
)

var current atomic.Pointer[Logger]

// SetDefaultLogger installs logger for the process and routes the slog
// default through it. A nil logger only clears the package default.
func SetDefaultLogger(logger *Logger) {
	current.Store(logger)
	if logger != nil {
		slog.SetDefault(logger.slog)
	}
}

// DefaultLogger returns the installed logger, or a stderr warning logger
// built from DefaultConfig when the command has not configured one yet.
func DefaultLogger() *Logger {
	if l := current.Load(); l != nil {
		return l
	}
	l := New(DefaultConfig())
	if current.CompareAndSwap(nil, l) {
		return l
	}
	return current.Load()
}
