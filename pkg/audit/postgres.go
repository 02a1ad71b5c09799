// Postgres-backed audit store using a pgx pool with OTel query tracing
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgx-contrib/pgxotel"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

// postgresSchema is applied idempotently at open. Postgres deployments tend
// to manage schema out of band; this covers the standalone case.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS calls (
    call_id     TEXT PRIMARY KEY,
    path        TEXT NOT NULL,
    type        TEXT NOT NULL,
    ok          BOOLEAN NOT NULL,
    error_code  TEXT NOT NULL DEFAULT '',
    internal    BOOLEAN NOT NULL DEFAULT FALSE,
    unexpected  BOOLEAN NOT NULL DEFAULT FALSE,
    trace_id    TEXT NOT NULL DEFAULT '',
    span_id     TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL,
    duration_ms DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calls_path_type ON calls (path, type);
`

// PostgresStore persists call records in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database named by dsn and ensures the calls
// table exists. Queries issued by the pool are traced through OTel.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing audit dsn: %w", err)
	}
	cfg.ConnConfig.Tracer = &pgxotel.QueryTracer{Name: "oteltrpc-audit"}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting audit database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring audit schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec oteltrpc.CallRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calls (call_id, path, type, ok, error_code, internal, unexpected,
			trace_id, span_id, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.CallID, rec.Path, string(rec.Type), rec.OK, rec.ErrorCode,
		rec.Internal, rec.Unexpected, rec.TraceID, rec.SpanID,
		rec.Start.UTC(), float64(rec.Duration)/float64(time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("inserting call record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Summarize(ctx context.Context) ([]PathSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT path, type, COUNT(*),
			COUNT(*) FILTER (WHERE NOT ok),
			COUNT(*) FILTER (WHERE internal),
			AVG(duration_ms)
		FROM calls
		GROUP BY path, type
		ORDER BY path, type`)
	if err != nil {
		return nil, fmt.Errorf("summarizing calls: %w", err)
	}
	defer rows.Close()

	var out []PathSummary
	for rows.Next() {
		var s PathSummary
		if err := rows.Scan(&s.Path, &s.Type, &s.Calls, &s.Failures, &s.Internal, &s.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading summary rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
