// Tests for provider bootstrap in stdout mode and protocol validation
package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStdoutProviders(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p, err := New(context.Background(), Config{
		ServiceName: "test-service",
		Stdout:      true,
		Writer:      &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, p.Tracer)
	require.NotNil(t, p.Meter)
	require.NotNil(t, p.Logger)

	// Emit one span so stdout mode produces output.
	_, span := p.Tracer.Tracer("test").Start(context.Background(), "probe")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "probe")
}

func TestNewUnsupportedProtocol(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Protocol: "carrier-pigeon"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported protocol"))
}

func TestShutdownIdempotent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p, err := New(context.Background(), Config{Stdout: true, Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}
