// Per-call instrumentation around procedure execution
// Sequencing per call: start log, handler, classification, count metric,
// completion log, span close, duration record. The cleanup tail runs on
// every path, including handler failure.
package oteltrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// scopeName is the instrumentation scope for the tracer and meter.
const scopeName = "github.com/andrewh/oteltrpc"

// Next runs the downstream handler. A returned Outcome means the handler
// completed and classified its own result; a non-nil error means it failed
// without producing an outcome and is treated as an unexpected,
// internal-severity failure.
type Next func(ctx context.Context) (Outcome, error)

// Interceptor wraps procedure executions with a trace span, call metrics,
// and contextual logs. Instrumentation is observational only: the outcome or
// error produced by the handler reaches the caller unchanged.
//
// An Interceptor is safe for concurrent use; all per-call state is freshly
// allocated per invocation.
type Interceptor struct {
	tracer          trace.Tracer
	metrics         *Metrics
	logger          Logger
	onInternalError func(error)
	observers       []CallObserver
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLogger attaches a logger. Each call derives a child logger bound to
// the procedure identity and propagates it to the handler through the
// context. Without a logger, debug and error logging are disabled; metrics
// and tracing are unaffected.
func WithLogger(logger Logger) Option {
	return func(i *Interceptor) { i.logger = logger }
}

// WithOnInternalError registers a hook invoked once per unexpected failure
// with the handler's error. The hook is notification only; a panic inside it
// is swallowed so it cannot mask the call's own error.
func WithOnInternalError(fn func(error)) Option {
	return func(i *Interceptor) { i.onInternalError = fn }
}

// WithObservers registers observers that receive a CallRecord after each
// call settles.
func WithObservers(observers ...CallObserver) Option {
	return func(i *Interceptor) { i.observers = append(i.observers, observers...) }
}

// New creates an Interceptor with instruments backed by the given providers.
// Providers are injected rather than pulled from globals so tests can
// substitute in-memory backends.
func New(tp trace.TracerProvider, mp metric.MeterProvider, opts ...Option) (*Interceptor, error) {
	metrics, err := NewMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("creating call instruments: %w", err)
	}

	ic := &Interceptor{
		tracer:  tp.Tracer(scopeName),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(ic)
	}
	return ic, nil
}

// Call executes next under instrumentation and returns its outcome or error
// unchanged. Exactly one span open/close pair, one count-metric emission,
// and one duration record happen per call, whichever way the handler
// settles.
func (i *Interceptor) Call(ctx context.Context, proc Procedure, next Next) (Outcome, error) {
	start := time.Now()
	callID := uuid.NewString()

	identity := []attribute.KeyValue{
		attribute.String(attrPath, proc.Path),
		attribute.String(attrType, string(proc.Type)),
	}

	ctx, span := i.tracer.Start(ctx, spanName(proc), trace.WithAttributes(identity...))

	// A panicking handler must not leave the span open or the histogram
	// short: settle instrumentation before the panic unwinds. settled stays
	// false only when next panics.
	settled := false
	defer func() {
		if settled {
			return
		}
		span.SetAttributes(
			attribute.Bool(attrOK, false),
			attribute.Bool("unexpected_error", true),
		)
		i.metrics.procedures.Add(ctx, 1, metric.WithAttributes(append(identity,
			attribute.Bool(attrOK, false),
			attribute.String(attrErrorCode, CodeUnexpected),
		)...))
		span.End()
		i.metrics.duration.Record(ctx, durationMs(time.Since(start)), metric.WithAttributes(identity...))
	}()

	var logger Logger
	if i.logger != nil {
		logger = i.logger.Child(Fields{
			"procedure": Fields{"path": proc.Path, "type": string(proc.Type)},
			"call_id":   callID,
		})
		if cl, ok := logger.(ContextLogger); ok {
			logger = cl.WithContext(ctx)
		}
		logger.Debug(nil, "starting procedure call")
		ctx = ContextWithLogger(ctx, logger)
	}

	outcome, err := next(ctx)
	settled = true
	elapsed := time.Since(start)

	rec := CallRecord{
		CallID:   callID,
		Path:     proc.Path,
		Type:     proc.Type,
		Start:    start,
		Duration: elapsed,
	}
	if sc := span.SpanContext(); sc.IsValid() {
		rec.TraceID = sc.TraceID().String()
		rec.SpanID = sc.SpanID().String()
	}

	switch {
	case err != nil:
		span.SetAttributes(
			attribute.Bool(attrOK, false),
			attribute.Bool("unexpected_error", true),
		)
		if logger != nil {
			logger.Error(Fields{"error": err.Error()}, "unexpected error in procedure call")
		}
		i.metrics.procedures.Add(ctx, 1, metric.WithAttributes(append(identity,
			attribute.Bool(attrOK, false),
			attribute.String(attrErrorCode, CodeUnexpected),
		)...))
		i.notifyInternalError(err)
		rec.ErrorCode = CodeUnexpected
		rec.Internal = true
		rec.Unexpected = true

	case outcome.OK:
		span.SetAttributes(attribute.Bool(attrOK, true))
		i.metrics.procedures.Add(ctx, 1, metric.WithAttributes(append(identity,
			attribute.Bool(attrOK, true),
		)...))
		rec.OK = true

	default:
		internal := InternalCode(outcome.ErrorCode)
		span.SetAttributes(
			attribute.Bool(attrOK, false),
			attribute.String(attrErrorCode, outcome.ErrorCode),
			attribute.Bool("internal_error", internal),
		)
		if internal && logger != nil {
			logger.Error(Fields{"error_code": outcome.ErrorCode}, "internal error in procedure call")
		}
		i.metrics.procedures.Add(ctx, 1, metric.WithAttributes(append(identity,
			attribute.Bool(attrOK, false),
			attribute.String(attrErrorCode, outcome.ErrorCode),
		)...))
		rec.ErrorCode = outcome.ErrorCode
		rec.Internal = internal
	}

	if err == nil && logger != nil {
		logger.Debug(Fields{"duration_ms": durationMs(elapsed)}, "procedure call completed")
	}

	span.End()
	i.metrics.duration.Record(ctx, durationMs(elapsed), metric.WithAttributes(identity...))

	for _, obs := range i.observers {
		i.observe(obs, rec)
	}

	return outcome, err
}

// notifyInternalError invokes the hook, containing any panic so it cannot
// mask the call's own error.
func (i *Interceptor) notifyInternalError(err error) {
	if i.onInternalError == nil {
		return
	}
	defer func() { _ = recover() }()
	i.onInternalError(err)
}

// observe delivers one record, containing observer panics so a faulty
// observer cannot alter the call result.
func (i *Interceptor) observe(obs CallObserver, rec CallRecord) {
	defer func() { _ = recover() }()
	obs.Observe(rec)
}

func spanName(proc Procedure) string {
	return fmt.Sprintf("trpc/%s (%s)", proc.Path, proc.Type)
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
