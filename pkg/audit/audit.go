// Per-call audit trail: persists a record of every settled procedure call
// The Recorder plugs into the interceptor as a CallObserver; storage faults
// are reported to the logger and never reach the call path
package audit

import (
	"context"
	"time"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

// Store persists call records and serves aggregate queries over them.
type Store interface {
	Insert(ctx context.Context, rec oteltrpc.CallRecord) error
	Summarize(ctx context.Context) ([]PathSummary, error)
	Close() error
}

// PathSummary aggregates the audited calls of one procedure.
type PathSummary struct {
	Path          string
	Type          string
	Calls         int64
	Failures      int64
	Internal      int64
	AvgDurationMs float64
}

// insertTimeout bounds how long one audit write may hold up the observer
// fan-out of a call.
const insertTimeout = 5 * time.Second

// Recorder adapts a Store to the interceptor's CallObserver interface.
type Recorder struct {
	store  Store
	logger oteltrpc.Logger
}

// NewRecorder creates a Recorder. A nil logger discards insert errors.
func NewRecorder(store Store, logger oteltrpc.Logger) *Recorder {
	if logger == nil {
		logger = oteltrpc.NopLogger{}
	}
	return &Recorder{store: store, logger: logger}
}

// Observe persists one call record.
func (r *Recorder) Observe(rec oteltrpc.CallRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if err := r.store.Insert(ctx, rec); err != nil {
		r.logger.Error(oteltrpc.Fields{
			"error":   err.Error(),
			"call_id": rec.CallID,
			"path":    rec.Path,
		}, "audit insert failed")
	}
}
