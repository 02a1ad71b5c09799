// Logger capability consumed by the interceptor and propagated to handlers
// Any structured logger that can derive a child with bound context satisfies it
package oteltrpc

import "context"

// Fields is the structured context attached to a log entry or bound to a
// child logger.
type Fields map[string]any

// Logger is the minimal logging capability the interceptor needs. Child
// returns a derived logger that merges the given fields into the context of
// every subsequent entry; the receiver is left untouched.
type Logger interface {
	Debug(fields Fields, msg string)
	Error(fields Fields, msg string)
	Child(fields Fields) Logger
}

// ContextLogger is an optional capability for loggers whose backend is
// context-aware. The interceptor binds the call context (carrying the active
// span) to the per-call child so emitted records correlate with their trace.
type ContextLogger interface {
	WithContext(ctx context.Context) Logger
}

// NopLogger discards everything. It stands in wherever a Logger is required
// but none was configured.
type NopLogger struct{}

func (NopLogger) Debug(Fields, string) {}
func (NopLogger) Error(Fields, string) {}
func (NopLogger) Child(Fields) Logger  { return NopLogger{} }

type loggerContextKey struct{}

// ContextWithLogger returns a context carrying the given logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the logger carried by ctx. Handlers running
// under the interceptor get the per-call child logger; outside a call this
// returns a NopLogger so callers never need a nil check.
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(Logger); ok {
		return logger
	}
	return NopLogger{}
}
