// Package audit persists session lifecycle events to a local SQLite
// database: login outcomes, enrichment hard resets, and logouts. The trail is
// append-only and best-effort; a failed write is logged and dropped, never
// surfaced into the session cycle.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/classdesk/session-gateway/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS auth_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         INTEGER NOT NULL,
	event_type TEXT    NOT NULL,
	provider   TEXT    NOT NULL DEFAULT '',
	subject_id TEXT    NOT NULL DEFAULT '',
	state      TEXT    NOT NULL DEFAULT '',
	error_kind TEXT    NOT NULL DEFAULT '',
	detail     TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_auth_events_ts ON auth_events(ts);
CREATE INDEX IF NOT EXISTS idx_auth_events_subject ON auth_events(subject_id);
`

// Store is a SQLite-backed audit trail.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the audit database at path.
// Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	// SQLite handles one writer at a time; serialize through a single conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends one event. Best-effort: failures are logged, not returned.
func (s *Store) Record(ctx context.Context, event session.AuditEvent) {
	ts := event.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_events (ts, event_type, provider, subject_id, state, error_kind, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts.Unix(), event.Type, event.Provider, event.SubjectID,
		string(event.State), string(event.ErrorKind), event.Detail,
	)
	if err != nil {
		log.Error().Err(err).Str("event_type", event.Type).Msg("audit: failed to record event")
	}
}

// Recent returns the newest events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]session.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, event_type, provider, subject_id, state, error_kind, detail
		 FROM auth_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []session.AuditEvent
	for rows.Next() {
		var ts int64
		var state, errorKind string
		var event session.AuditEvent
		if err := rows.Scan(&ts, &event.Type, &event.Provider, &event.SubjectID, &state, &errorKind, &event.Detail); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		event.Time = time.Unix(ts, 0).UTC()
		event.State = session.State(state)
		event.ErrorKind = session.ErrorKind(errorKind)
		events = append(events, event)
	}
	return events, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Verify Store implements the assembler's audit trail interface.
var _ session.AuditTrail = (*Store)(nil)
