//go:build postgres

package audit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS lookup_events (
	id          UUID PRIMARY KEY,
	timestamp   TIMESTAMPTZ NOT NULL,
	term        TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	message     TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	source      TEXT NOT NULL,
	page_id     TEXT,
	request_id  TEXT
);
CREATE INDEX IF NOT EXISTS idx_lookup_events_timestamp ON lookup_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_lookup_events_outcome ON lookup_events(outcome);`

// PostgresLookupLogger stores lookup events in PostgreSQL.
type PostgresLookupLogger struct {
	pool    *pgxpool.Pool
	ownPool bool
}

// NewPostgresLookupLogger connects to connStr and ensures the schema exists.
func NewPostgresLookupLogger(ctx context.Context, connStr string) (*PostgresLookupLogger, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	l, err := NewPostgresLookupLoggerFromPool(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	l.ownPool = true
	return l, nil
}

// NewPostgresLookupLoggerFromPool uses an existing pool, which the caller
// keeps ownership of.
func NewPostgresLookupLoggerFromPool(ctx context.Context, pool *pgxpool.Pool) (*PostgresLookupLogger, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create lookup_events schema: %w", err)
	}
	return &PostgresLookupLogger{pool: pool}, nil
}

// Close closes the pool if this logger created it.
func (s *PostgresLookupLogger) Close() error {
	if s.ownPool {
		s.pool.Close()
	}
	return nil
}

// Log records an event.
func (s *PostgresLookupLogger) Log(ctx context.Context, event *LookupEvent) error {
	if event == nil {
		return nil
	}
	if !ValidOutcome(event.Outcome) {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, event.Outcome)
	}
	stamp(event)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO lookup_events (id, timestamp, term, outcome, message, duration_ms, source, page_id, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.Timestamp, event.Term, event.Outcome,
		nullStr(event.Message), event.DurationMS, event.Source,
		nullStr(event.PageID), nullStr(event.RequestID),
	)
	return err
}

// List returns matching events, newest first.
func (s *PostgresLookupLogger) List(ctx context.Context, opts ListOptions) ([]*LookupEvent, int, error) {
	opts.normalize()

	where := "TRUE"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if opts.Outcome != "" {
		where += " AND outcome = " + arg(opts.Outcome)
	}
	if opts.Term != "" {
		where += " AND lower(term) = lower(" + arg(opts.Term) + ")"
	}
	if opts.Since != nil {
		where += " AND timestamp >= " + arg(*opts.Since)
	}
	if opts.Until != nil {
		where += " AND timestamp <= " + arg(*opts.Until)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM lookup_events WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT id::text, timestamp, term, outcome, COALESCE(message, ''), duration_ms, source, " +
		"COALESCE(page_id, ''), COALESCE(request_id, '') FROM lookup_events WHERE " + where +
		" ORDER BY timestamp DESC, id LIMIT " + arg(opts.Limit) + " OFFSET " + arg(opts.Offset)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*LookupEvent, error) {
		var e LookupEvent
		err := row.Scan(&e.ID, &e.Timestamp, &e.Term, &e.Outcome, &e.Message, &e.DurationMS, &e.Source, &e.PageID, &e.RequestID)
		e.Timestamp = e.Timestamp.UTC()
		return &e, err
	})
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
