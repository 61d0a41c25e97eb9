// Package logging carries the slog logger every kubelab package writes
// through. Callers swap it at runtime with SetLogger, so it lives behind
// atomic pointers rather than a plain package variable.
package logging

import (
	"log/slog"
	"sync/atomic"
)

var (
	// logger is the caller-supplied override. Nil means nobody called
	// SetLogger and Logger serves the cached default instead.
	logger atomic.Pointer[slog.Logger]

	// defaultLogger memoizes slog.Default().With("component", "kubelab").
	// The cache goes stale if slog.SetDefault runs afterwards; SetLogger(nil)
	// drops it so the next Logger call picks up the new default.
	defaultLogger atomic.Pointer[slog.Logger]
)

// Logger returns the active logger, deriving and caching the default on
// first use. Safe for concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "kubelab")
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	// Lost the race to another caller; use whatever it cached. A concurrent
	// SetLogger may have cleared the slot again, hence the nil check.
	if cached := defaultLogger.Load(); cached != nil {
		return cached
	}
	return l
}

// SetLogger installs l as the logger for all kubelab packages. Passing nil
// reverts to the slog default. Safe to call mid-operation; in-flight code
// picks up the new logger on its next call to Logger.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
