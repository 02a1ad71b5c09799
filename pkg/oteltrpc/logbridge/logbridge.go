// OTel log adapter for the oteltrpc Logger capability
// Emits structured log records through a LoggerProvider; Child merges bound
// fields into every subsequent record
package logbridge

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/log"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

const scopeName = "github.com/andrewh/oteltrpc/logbridge"

// Logger emits oteltrpc log entries as OTel log records.
type Logger struct {
	logger log.Logger
	bound  oteltrpc.Fields
	ctx    context.Context
}

// New creates a Logger backed by the given LoggerProvider.
func New(lp log.LoggerProvider) *Logger {
	return &Logger{logger: lp.Logger(scopeName)}
}

func (l *Logger) Debug(fields oteltrpc.Fields, msg string) {
	l.emit(log.SeverityDebug, "DEBUG", fields, msg)
}

func (l *Logger) Error(fields oteltrpc.Fields, msg string) {
	l.emit(log.SeverityError, "ERROR", fields, msg)
}

func (l *Logger) Child(fields oteltrpc.Fields) oteltrpc.Logger {
	merged := make(oteltrpc.Fields, len(l.bound)+len(fields))
	for k, v := range l.bound {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{logger: l.logger, bound: merged, ctx: l.ctx}
}

// WithContext binds ctx so emitted records pick up any active span, keeping
// logs correlated with the trace they belong to.
func (l *Logger) WithContext(ctx context.Context) oteltrpc.Logger {
	return &Logger{logger: l.logger, bound: l.bound, ctx: ctx}
}

func (l *Logger) emit(severity log.Severity, severityText string, fields oteltrpc.Fields, msg string) {
	var rec log.Record
	rec.SetSeverity(severity)
	rec.SetSeverityText(severityText)
	rec.SetBody(log.StringValue(msg))
	rec.AddAttributes(logAttributes(l.bound)...)
	rec.AddAttributes(logAttributes(fields)...)
	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	l.logger.Emit(ctx, rec)
}

// logAttributes converts in sorted key order so records are deterministic.
func logAttributes(fields oteltrpc.Fields) []log.KeyValue {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]log.KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, log.KeyValue{Key: k, Value: logValue(fields[k])})
	}
	return out
}

func logValue(v any) log.Value {
	switch v := v.(type) {
	case string:
		return log.StringValue(v)
	case bool:
		return log.BoolValue(v)
	case int:
		return log.Int64Value(int64(v))
	case int64:
		return log.Int64Value(v)
	case float64:
		return log.Float64Value(v)
	case oteltrpc.Fields:
		return log.MapValue(logAttributes(v)...)
	case map[string]any:
		return log.MapValue(logAttributes(v)...)
	case error:
		return log.StringValue(v.Error())
	default:
		return log.StringValue(fmt.Sprint(v))
	}
}
