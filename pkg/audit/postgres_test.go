// Integration tests for the Postgres audit store
// Run against a live database: OTELTRPC_TEST_POSTGRES_DSN=postgres://... go test
package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPostgresBadDSN(t *testing.T) {
	t.Parallel()

	_, err := OpenPostgres(context.Background(), "not a dsn")
	assert.Error(t, err)
}

func TestPostgresInsertAndSummarize(t *testing.T) {
	t.Parallel()

	dsn := os.Getenv("OTELTRPC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("OTELTRPC_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	path := "it." + uuid.NewString()
	require.NoError(t, store.Insert(ctx, testRecord(uuid.NewString(), path, true, "", 20*time.Millisecond)))
	require.NoError(t, store.Insert(ctx, testRecord(uuid.NewString(), path, false, "INTERNAL_SERVER_ERROR", 40*time.Millisecond)))

	summaries, err := store.Summarize(ctx)
	require.NoError(t, err)

	var found bool
	for _, s := range summaries {
		if s.Path != path {
			continue
		}
		found = true
		assert.Equal(t, int64(2), s.Calls)
		assert.Equal(t, int64(1), s.Failures)
		assert.Equal(t, int64(1), s.Internal)
		assert.InDelta(t, 30.0, s.AvgDurationMs, 0.01)
	}
	assert.True(t, found, "summary for inserted path should exist")
}
