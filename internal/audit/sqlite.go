//go:build sqlite

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-less SQLite driver
)

// timeLayout sorts lexicographically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS lookup_events (
	id          TEXT PRIMARY KEY,
	timestamp   TEXT NOT NULL,
	term        TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	message     TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	source      TEXT NOT NULL,
	page_id     TEXT,
	request_id  TEXT
);
CREATE INDEX IF NOT EXISTS idx_lookup_events_timestamp ON lookup_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_lookup_events_outcome ON lookup_events(outcome);`

// SQLiteLookupLogger stores lookup events in a SQLite database.
type SQLiteLookupLogger struct {
	db *sql.DB
}

// NewSQLiteLookupLogger opens (or creates) the database at dsn and ensures
// the schema exists.
func NewSQLiteLookupLogger(dsn string) (*SQLiteLookupLogger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create lookup_events schema: %w", err)
	}
	return &SQLiteLookupLogger{db: db}, nil
}

// Close closes the database.
func (s *SQLiteLookupLogger) Close() error {
	return s.db.Close()
}

// Log records an event.
func (s *SQLiteLookupLogger) Log(ctx context.Context, event *LookupEvent) error {
	if event == nil {
		return nil
	}
	if !ValidOutcome(event.Outcome) {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, event.Outcome)
	}
	stamp(event)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookup_events (id, timestamp, term, outcome, message, duration_ms, source, page_id, request_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Timestamp.UTC().Format(timeLayout),
		event.Term,
		event.Outcome,
		nullString(event.Message),
		event.DurationMS,
		event.Source,
		nullString(event.PageID),
		nullString(event.RequestID),
	)
	return err
}

// List returns matching events, newest first.
func (s *SQLiteLookupLogger) List(ctx context.Context, opts ListOptions) ([]*LookupEvent, int, error) {
	opts.normalize()

	where := "1=1"
	var args []any
	if opts.Outcome != "" {
		where += " AND outcome = ?"
		args = append(args, opts.Outcome)
	}
	if opts.Term != "" {
		where += " AND term = ? COLLATE NOCASE"
		args = append(args, opts.Term)
	}
	if opts.Since != nil {
		where += " AND timestamp >= ?"
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	if opts.Until != nil {
		where += " AND timestamp <= ?"
		args = append(args, opts.Until.UTC().Format(timeLayout))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lookup_events WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, timestamp, term, outcome, message, duration_ms, source, page_id, request_id FROM lookup_events WHERE "+
			where+" ORDER BY timestamp DESC, id LIMIT ? OFFSET ?",
		append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var events []*LookupEvent
	for rows.Next() {
		var e LookupEvent
		var ts string
		var message, pageID, requestID sql.NullString
		if err := rows.Scan(&e.ID, &ts, &e.Term, &e.Outcome, &message, &e.DurationMS, &e.Source, &pageID, &requestID); err != nil {
			return nil, 0, err
		}
		e.Timestamp, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, 0, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		e.Message, e.PageID, e.RequestID = message.String, pageID.String, requestID.String
		events = append(events, &e)
	}
	return events, total, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
