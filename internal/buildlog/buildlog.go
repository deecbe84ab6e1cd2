// Package buildlog is a small level-gated wrapper over *zap.Logger, so
// driver and CLI code never holds a *zap.Logger itself (callers still
// import zap to build structured fields). The OOP lowering core never
// raises user-facing diagnostics; these calls are the only observable
// signal it produces.
package buildlog

import "go.uber.org/zap"

// Logger wraps one *zap.Logger behind nil-safe methods. A nil *Logger is
// valid and discards everything, so packages
// that don't wire one up (tests, library callers that don't care) pay
// nothing for it.
type Logger struct {
	z *zap.Logger
}

// New wraps an existing zap logger.
func New(z *zap.Logger) *Logger { return &Logger{z: z} }

// NewProduction builds a production-configured logger, matching the
// default most CLI entry points reach for.
func NewProduction() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

// Noop returns a logger that discards everything.
func Noop() *Logger { return New(zap.NewNop()) }

// Debug logs at debug level with structured fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Debug(msg, fields...)
}

// Warn logs at warn level with structured fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Warn(msg, fields...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l == nil || l.z == nil {
		return nil
	}
	return l.z.Sync()
}
