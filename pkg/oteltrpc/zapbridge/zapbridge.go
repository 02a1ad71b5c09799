// Zap adapter for the oteltrpc Logger capability
// Child maps to zap's With, so bound call context rides on every entry
package zapbridge

import (
	"sort"

	"go.uber.org/zap"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

// Logger adapts a *zap.Logger to the oteltrpc Logger capability.
type Logger struct {
	base *zap.Logger
}

// New wraps a zap logger. A nil base yields a no-op adapter.
func New(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{base: base}
}

func (l *Logger) Debug(fields oteltrpc.Fields, msg string) {
	l.base.Debug(msg, zapFields(fields)...)
}

func (l *Logger) Error(fields oteltrpc.Fields, msg string) {
	l.base.Error(msg, zapFields(fields)...)
}

func (l *Logger) Child(fields oteltrpc.Fields) oteltrpc.Logger {
	return &Logger{base: l.base.With(zapFields(fields)...)}
}

// zapFields converts in sorted key order so entries are deterministic.
func zapFields(fields oteltrpc.Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
