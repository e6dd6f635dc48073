// Package mlog defines the logging contract shared by every component of
// the procurement core. It mirrors the teacher's common/mlog package: a
// small interface any backend can satisfy, plus context propagation so
// handlers, services, and the outbox worker all log through the same
// request-scoped logger.
package mlog

import "context"

// Logger is the common interface for log implementations used across the
// procurement core. Components depend on this interface rather than a
// concrete logging library, and receive an instance as a Logger field.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)

	// WithFields returns a new Logger with the given key-value pairs
	// attached to every subsequent entry.
	WithFields(fields ...any) Logger

	Sync() error
}

// NoneLogger discards everything. It backs NewLoggerFromContext when no
// logger was installed, so callers never need a nil check.
type NoneLogger struct{}

func (NoneLogger) Info(args ...any)                 {}
func (NoneLogger) Infof(format string, args ...any) {}
func (NoneLogger) Error(args ...any)                {}
func (NoneLogger) Errorf(format string, args ...any) {}
func (NoneLogger) Warn(args ...any)                  {}
func (NoneLogger) Warnf(format string, args ...any)  {}
func (NoneLogger) Debug(args ...any)                 {}
func (NoneLogger) Debugf(format string, args ...any) {}
func (NoneLogger) Fatal(args ...any)                 {}
func (NoneLogger) Fatalf(format string, args ...any) {}

//nolint:ireturn
func (l NoneLogger) WithFields(fields ...any) Logger { return l }
func (NoneLogger) Sync() error                       { return nil }

type contextKey string

const loggerContextKey contextKey = "mlog.logger"

// ContextWithLogger returns a context carrying the given Logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// NewLoggerFromContext extracts the Logger installed by ContextWithLogger,
// falling back to a NoneLogger when none was installed.
//
//nolint:ireturn
func NewLoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerContextKey).(Logger); ok && logger != nil {
		return logger
	}

	return NoneLogger{}
}
