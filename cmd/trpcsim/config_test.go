// Tests for workload parsing, normalisation, and rate strings
package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

func writeTestWorkload(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "workload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validWorkload = `
procedures:
  user.get:
    type: query
    latency: 5ms
    failure_rate: 0.1
    failure_code: NOT_FOUND
  billing.charge:
    type: mutation
    latency: 20ms
    failure_rate: 0.02
    failure_code: INTERNAL_SERVER_ERROR
    throw_rate: 0.01
traffic:
  rate: 100/s
duration: 30s
`

func TestLoadWorkloadValid(t *testing.T) {
	t.Parallel()

	w, err := LoadWorkload(writeTestWorkload(t, validWorkload))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, w.Duration)
	assert.Equal(t, 10*time.Millisecond, w.Rate.Interval())

	require.Len(t, w.Procedures, 2)
	// Normalisation sorts by path for deterministic ordering.
	assert.Equal(t, "billing.charge", w.Procedures[0].Path)
	assert.Equal(t, oteltrpc.TypeMutation, w.Procedures[0].Type)
	assert.Equal(t, 20*time.Millisecond, w.Procedures[0].Latency)
	assert.InDelta(t, 0.01, w.Procedures[0].ThrowRate, 1e-9)

	assert.Equal(t, "user.get", w.Procedures[1].Path)
	assert.Equal(t, oteltrpc.TypeQuery, w.Procedures[1].Type)
	assert.Equal(t, "NOT_FOUND", w.Procedures[1].FailureCode)
}

func TestLoadWorkloadDefaultDuration(t *testing.T) {
	t.Parallel()

	w, err := LoadWorkload(writeTestWorkload(t, `
procedures:
  ping:
    type: query
traffic:
  rate: 10/s
`))
	require.NoError(t, err)
	assert.Equal(t, defaultDuration, w.Duration)
}

func TestLoadWorkloadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no procedures",
			content: "traffic:\n  rate: 10/s\n",
			wantErr: "no procedures",
		},
		{
			name: "missing type",
			content: `
procedures:
  user.get: {}
traffic:
  rate: 10/s
`,
			wantErr: "missing type",
		},
		{
			name: "unknown type",
			content: `
procedures:
  user.get:
    type: request
traffic:
  rate: 10/s
`,
			wantErr: "unknown type",
		},
		{
			name: "failure rate out of range",
			content: `
procedures:
  user.get:
    type: query
    failure_rate: 1.5
    failure_code: NOT_FOUND
traffic:
  rate: 10/s
`,
			wantErr: "failure_rate",
		},
		{
			name: "failure rate without code",
			content: `
procedures:
  user.get:
    type: query
    failure_rate: 0.5
traffic:
  rate: 10/s
`,
			wantErr: "failure_code",
		},
		{
			name: "rates exceed one",
			content: `
procedures:
  user.get:
    type: query
    failure_rate: 0.8
    failure_code: NOT_FOUND
    throw_rate: 0.3
traffic:
  rate: 10/s
`,
			wantErr: "cannot exceed 1",
		},
		{
			name: "bad rate",
			content: `
procedures:
  user.get:
    type: query
traffic:
  rate: fast
`,
			wantErr: "traffic rate",
		},
		{
			name: "bad latency",
			content: `
procedures:
  user.get:
    type: query
    latency: soon
traffic:
  rate: 10/s
`,
			wantErr: "latency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadWorkload(writeTestWorkload(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseRate(t *testing.T) {
	t.Parallel()

	r, err := ParseRate("100/s")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, r.Interval())

	r, err = ParseRate("60/m")
	require.NoError(t, err)
	assert.Equal(t, time.Second, r.Interval())

	for _, bad := range []string{"", "100", "0/s", "-1/s", "100/d", "x/s", "20000/s"} {
		_, err := ParseRate(bad)
		assert.Error(t, err, bad)
	}
}
