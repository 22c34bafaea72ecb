package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sweeney/dome-weather/internal/weather"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id        TEXT PRIMARY KEY,
	source    TEXT NOT NULL,
	captured  INTEGER NOT NULL,
	safe      INTEGER NOT NULL,
	payload   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS records_captured ON records (captured);
`

// SQLiteStore keeps every record in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: :memory: databases are per connection and writes are serialized anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Name implements Sink.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Save implements Sink.
func (s *SQLiteStore) Save(ctx context.Context, rec weather.Record) error {
	payload, err := weather.FormatRecord(rec)
	if err != nil {
		return fmt.Errorf("format record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records (id, source, captured, safe, payload) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Reading.Source, rec.Reading.Time.Unix(), rec.Verdict.Safe, string(payload))
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	return nil
}

// Since returns records captured at or after t, oldest first.
func (s *SQLiteStore) Since(ctx context.Context, t time.Time) ([]weather.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM records WHERE captured >= ? ORDER BY captured, id`, t.Unix())
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []weather.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := weather.ParseRecord([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes records captured before t and returns how many went.
func (s *SQLiteStore) Prune(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE captured < ?`, t.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune records: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Sink.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
