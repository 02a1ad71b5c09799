// SQLite-backed audit store using the modernc driver
// Schema is managed with embedded golang-migrate migrations
package audit

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists call records in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and brings its
// schema up to date.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	// The driver serialises access itself; more than one writer on a single
	// SQLite file just contends on the file lock.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating audit schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec oteltrpc.CallRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (call_id, path, type, ok, error_code, internal, unexpected,
			trace_id, span_id, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CallID, rec.Path, string(rec.Type), boolInt(rec.OK), rec.ErrorCode,
		boolInt(rec.Internal), boolInt(rec.Unexpected),
		rec.TraceID, rec.SpanID,
		rec.Start.UTC().Format(time.RFC3339Nano),
		float64(rec.Duration)/float64(time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("inserting call record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Summarize(ctx context.Context) ([]PathSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, type, COUNT(*),
			SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END),
			SUM(internal),
			AVG(duration_ms)
		FROM calls
		GROUP BY path, type
		ORDER BY path, type`)
	if err != nil {
		return nil, fmt.Errorf("summarizing calls: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
