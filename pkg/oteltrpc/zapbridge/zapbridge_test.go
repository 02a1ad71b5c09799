// Tests for the zap Logger adapter using zap's observer core
package zapbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

func newObservedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(zap.New(core)), logs
}

func TestDebugAndErrorLevels(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger()

	logger.Debug(oteltrpc.Fields{"k": "v"}, "debug entry")
	logger.Error(oteltrpc.Fields{"code": "INTERNAL_SERVER_ERROR"}, "error entry")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "debug entry", entries[0].Message)
	assert.Equal(t, "v", entries[0].ContextMap()["k"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", entries[1].ContextMap()["code"])
}

func TestChildBindsContext(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger()

	child := logger.Child(oteltrpc.Fields{"call_id": "abc"})
	child.Debug(oteltrpc.Fields{"step": "load"}, "working")

	// The parent is untouched by the derivation.
	logger.Debug(nil, "parent entry")

	entries := logs.All()
	require.Len(t, entries, 2)

	childCtx := entries[0].ContextMap()
	assert.Equal(t, "abc", childCtx["call_id"])
	assert.Equal(t, "load", childCtx["step"])

	assert.NotContains(t, entries[1].ContextMap(), "call_id")
}

func TestNewNilBase(t *testing.T) {
	t.Parallel()

	logger := New(nil)
	// Must not panic.
	logger.Debug(oteltrpc.Fields{"k": "v"}, "msg")
	logger.Error(nil, "msg")
	logger.Child(oteltrpc.Fields{"k": "v"}).Debug(nil, "msg")
}
