// CallObserver interface for deriving secondary signals from completed calls
// Observers receive a CallRecord after each call settles, on any outcome
package oteltrpc

import "time"

// CallRecord summarises one settled procedure call.
type CallRecord struct {
	CallID     string
	Path       string
	Type       ProcedureType
	OK         bool
	ErrorCode  string
	Internal   bool
	Unexpected bool
	TraceID    string
	SpanID     string
	Start      time.Time
	Duration   time.Duration
}

// CallObserver receives a record after each call settles. Observe runs on
// the calling goroutine after the span is closed; implementations must not
// block for long and must tolerate concurrent calls.
type CallObserver interface {
	Observe(rec CallRecord)
}
