// Call count and duration instruments, created once and shared by all calls
// Uses the OTel Metrics API; instrument implementations own concurrency safety
package oteltrpc

import (
	"go.opentelemetry.io/otel/metric"
)

// Metric and span attribute keys. The names are fixed for compatibility with
// dashboards built against the trpc.* metrics.
const (
	metricProcedures = "trpc.procedures"
	metricTime       = "trpc.time"

	attrPath      = "path"
	attrType      = "type"
	attrOK        = "ok"
	attrErrorCode = "error_code"
)

// Metrics holds the process-wide call instruments: a monotonic call counter
// and a duration histogram in milliseconds.
type Metrics struct {
	procedures metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewMetrics creates the call instruments backed by the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(scopeName)

	procedures, err := meter.Int64Counter(metricProcedures,
		metric.WithDescription("Number of procedure calls"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(metricTime,
		metric.WithUnit("ms"),
		metric.WithDescription("Duration of procedure calls in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		procedures: procedures,
		duration:   duration,
	}, nil
}
