// Package mzap adapts go.uber.org/zap to the pkg/mlog.Logger contract, the
// way the teacher's common/mzap wraps otelzap. Tracing spans are not in
// this module's budget, so this is the plain zap.SugaredLogger flavor of
// that wrapper rather than the OTel-bridged one.
package mzap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
)

// Logger wraps a zap.SugaredLogger to satisfy mlog.Logger.
type Logger struct {
	s *zap.SugaredLogger
}

// InitializeLogger builds a production zap logger (JSON encoding, info
// level) and wraps it. Use InitializeLoggerWithLevel for an explicit level.
func InitializeLogger() (*Logger, error) {
	return InitializeLoggerWithLevel("info")
}

// InitializeLoggerWithLevel builds a zap logger at the given level
// ("debug", "info", "warn", "error").
func InitializeLoggerWithLevel(level string) (*Logger, error) {
	var lvl zapcore.Level

	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{s: base.Sugar()}, nil
}

func (l *Logger) Info(args ...any)                  { l.s.Info(args...) }
func (l *Logger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *Logger) Error(args ...any)                 { l.s.Error(args...) }
func (l *Logger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
func (l *Logger) Warn(args ...any)                  { l.s.Warn(args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *Logger) Debug(args ...any)                 { l.s.Debug(args...) }
func (l *Logger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l *Logger) Fatal(args ...any)                 { l.s.Fatal(args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.s.Fatalf(format, args...) }

// WithFields returns a new Logger with the given key-value pairs attached.
//
//nolint:ireturn
func (l *Logger) WithFields(fields ...any) mlog.Logger {
	return &Logger{s: l.s.With(fields...)}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.s.Sync()
}
