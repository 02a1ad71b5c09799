// Tests for the OTel log adapter using an in-memory log exporter
package logbridge

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

type memoryLogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryLogExporter) get() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sdklog.Record, len(e.records))
	copy(out, e.records)
	return out
}

func newTestLogger(t *testing.T) (*Logger, *memoryLogExporter) {
	t.Helper()
	exporter := &memoryLogExporter{}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)),
	)
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })
	return New(lp), exporter
}

func recordAttrs(rec sdklog.Record) map[string]otellog.Value {
	out := make(map[string]otellog.Value)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})
	return out
}

func TestSeverityMapping(t *testing.T) {
	t.Parallel()

	logger, exporter := newTestLogger(t)

	logger.Debug(nil, "starting procedure call")
	logger.Error(nil, "internal error in procedure call")

	records := exporter.get()
	require.Len(t, records, 2)
	assert.Equal(t, otellog.SeverityDebug, records[0].Severity())
	assert.Equal(t, "starting procedure call", records[0].Body().AsString())
	assert.Equal(t, otellog.SeverityError, records[1].Severity())
}

func TestChildMergesBoundFields(t *testing.T) {
	t.Parallel()

	logger, exporter := newTestLogger(t)

	child := logger.Child(oteltrpc.Fields{
		"procedure": oteltrpc.Fields{"path": "user.get", "type": "query"},
	})
	child.Debug(oteltrpc.Fields{"step": "load"}, "working")

	records := exporter.get()
	require.Len(t, records, 1)

	attrs := recordAttrs(records[0])
	require.Contains(t, attrs, "procedure")
	require.Contains(t, attrs, "step")
	assert.Equal(t, "load", attrs["step"].AsString())

	proc := make(map[string]string)
	for _, kv := range attrs["procedure"].AsMap() {
		proc[kv.Key] = kv.Value.AsString()
	}
	assert.Equal(t, "user.get", proc["path"])
	assert.Equal(t, "query", proc["type"])
}

func TestEntryFieldsOverrideNothingOnParent(t *testing.T) {
	t.Parallel()

	logger, exporter := newTestLogger(t)

	_ = logger.Child(oteltrpc.Fields{"call_id": "abc"})
	logger.Debug(nil, "parent entry")

	records := exporter.get()
	require.Len(t, records, 1)
	assert.NotContains(t, recordAttrs(records[0]), "call_id")
}

func TestWithContextCorrelatesRecordsToSpan(t *testing.T) {
	t.Parallel()

	logger, exporter := newTestLogger(t)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "call")
	defer span.End()

	bound, ok := logger.Child(oteltrpc.Fields{"call_id": "abc"}).(oteltrpc.ContextLogger)
	require.True(t, ok, "children must keep the context capability")
	bound.WithContext(ctx).Debug(nil, "inside span")

	records := exporter.get()
	require.Len(t, records, 1)
	sc := span.SpanContext()
	assert.Equal(t, sc.TraceID(), records[0].TraceID(),
		"record should carry the active trace")
	assert.Equal(t, sc.SpanID(), records[0].SpanID())
	assert.Contains(t, recordAttrs(records[0]), "call_id",
		"binding a context must preserve bound fields")
}

func TestValueConversion(t *testing.T) {
	t.Parallel()

	logger, exporter := newTestLogger(t)

	logger.Debug(oteltrpc.Fields{
		"str":   "s",
		"bool":  true,
		"int":   42,
		"float": 1.5,
	}, "typed fields")

	records := exporter.get()
	require.Len(t, records, 1)

	attrs := recordAttrs(records[0])
	assert.Equal(t, "s", attrs["str"].AsString())
	assert.True(t, attrs["bool"].AsBool())
	assert.Equal(t, int64(42), attrs["int"].AsInt64())
	assert.InDelta(t, 1.5, attrs["float"].AsFloat64(), 0.001)
}
