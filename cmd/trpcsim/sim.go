// Workload runner: drives simulated procedure calls through the interceptor
// at the configured rate until the duration elapses or the context is done
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

// simStats holds counters collected during a simulation run.
type simStats struct {
	Calls       int64   `json:"calls"`
	Failures    int64   `json:"failures"`
	Unexpected  int64   `json:"unexpected"`
	ElapsedMs   int64   `json:"elapsed_ms"`
	CallsPerSec float64 `json:"calls_per_second"`
}

// runWorkload executes calls sequentially at the workload's rate. It returns
// promptly on context cancellation with the stats collected so far.
func runWorkload(ctx context.Context, w *Workload, ic *oteltrpc.Interceptor, rng *rand.Rand) *simStats {
	stats := &simStats{}
	start := time.Now()
	deadline := start.Add(w.Duration)

	ticker := time.NewTicker(w.Rate.Interval())
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			finaliseStats(stats, start)
			return stats
		case <-ticker.C:
		}

		proc := w.Procedures[rng.IntN(len(w.Procedures))]
		outcome, err := ic.Call(ctx, oteltrpc.Procedure{Path: proc.Path, Type: proc.Type},
			simulatedHandler(proc, rng))

		stats.Calls++
		switch {
		case err != nil:
			stats.Unexpected++
		case !outcome.OK:
			stats.Failures++
		}
	}

	finaliseStats(stats, start)
	return stats
}

// simulatedHandler sleeps for the configured latency, then rolls the outcome:
// throw first, then handled failure, then success.
func simulatedHandler(proc ProcedureConfig, rng *rand.Rand) oteltrpc.Next {
	roll := rng.Float64()
	return func(ctx context.Context) (oteltrpc.Outcome, error) {
		if proc.Latency > 0 {
			timer := time.NewTimer(proc.Latency)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return oteltrpc.Outcome{}, ctx.Err()
			case <-timer.C:
			}
		}

		switch {
		case roll < proc.ThrowRate:
			return oteltrpc.Outcome{}, fmt.Errorf("simulated handler crash in %s", proc.Path)
		case roll < proc.ThrowRate+proc.FailureRate:
			return oteltrpc.Failure(proc.FailureCode), nil
		default:
			return oteltrpc.Success(), nil
		}
	}
}

func finaliseStats(stats *simStats, start time.Time) {
	elapsed := time.Since(start)
	stats.ElapsedMs = elapsed.Milliseconds()
	if elapsed > 0 {
		stats.CallsPerSec = float64(stats.Calls) / elapsed.Seconds()
	}
}
