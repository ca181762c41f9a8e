// CLAUDE:SUMMARY SQLite capture journal — records, date listings, stats, retention cleanup.
// Package index maintains the SQLite journal of captures. The scheduler
// records every stored frame here; the control surface reads date and capture
// listings from it instead of re-scanning the output tree on every request.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/lapse/dbopen"
	"github.com/hazyhaar/lapse/idgen"
	"github.com/hazyhaar/lapse/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS captures (
	id           TEXT PRIMARY KEY,
	captured_at  INTEGER NOT NULL,
	capture_date TEXT NOT NULL,
	file_path    TEXT NOT NULL,
	size_bytes   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_date ON captures(capture_date);
CREATE INDEX IF NOT EXISTS idx_captures_at   ON captures(captured_at);

CREATE TABLE IF NOT EXISTS capture_events (
	id         TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	success    INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_at ON capture_events(created_at);
`

// Capture is one journaled frame.
type Capture struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Size      int64     `json:"size_bytes"`
}

// Event is a domain-level capture event (success or failure).
type Event struct {
	Type    string
	Detail  string
	Success bool
}

// Stats are point-in-time journal counters.
type Stats struct {
	Captures   int64 `json:"captures"`
	TotalBytes int64 `json:"total_bytes"`
	Days       int64 `json:"days"`
}

// Index wraps the journal database.
type Index struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithIDGenerator sets a custom ID generator for capture and event rows.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(ix *Index) { ix.newID = gen }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) { ix.logger = logger }
}

// New wraps an already-open database (tests use dbopen.OpenMemory).
func New(db *sql.DB, opts ...Option) (*Index, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("index: schema: %w", err)
	}
	ix := &Index{
		db:     db,
		newID:  idgen.Prefixed("cap_", idgen.Default),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(ix)
	}
	return ix, nil
}

// Open opens (or creates) the journal at path.
func Open(path string, opts ...Option) (*Index, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, err
	}
	return New(db, opts...)
}

// Close closes the underlying database.
func (ix *Index) Close() error { return ix.db.Close() }

// RecordCapture journals a stored frame.
func (ix *Index) RecordCapture(ctx context.Context, rec storage.Record) error {
	_, err := dbopen.Exec(ctx, ix.db, `
		INSERT INTO captures (id, captured_at, capture_date, file_path, size_bytes)
		VALUES (?,?,?,?,?)`,
		ix.newID(), rec.Timestamp.Unix(), rec.Timestamp.Format("2006-01-02"), rec.Path, rec.Size)
	if err != nil {
		return fmt.Errorf("index: record capture: %w", err)
	}
	return nil
}

// LogEvent records a capture event. Non-blocking: errors are logged via slog
// but do not propagate, so a failing journal never disturbs the capture loop.
func (ix *Index) LogEvent(ctx context.Context, event Event) {
	_, err := dbopen.Exec(ctx, ix.db, `
		INSERT INTO capture_events (id, event_type, detail, success, created_at)
		VALUES (?,?,?,?,?)`,
		ix.newID(), event.Type, event.Detail, event.Success, time.Now().Unix())
	if err != nil {
		ix.logger.Warn("index: event log failed", "error", err, "event_type", event.Type)
	}
}

// Dates lists distinct capture dates, newest first.
func (ix *Index) Dates(ctx context.Context) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT DISTINCT capture_date FROM captures ORDER BY capture_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("index: dates: %w", err)
	}
	defer rows.Close()
	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// ListByDate returns the captures journaled on a date, oldest first.
func (ix *Index) ListByDate(ctx context.Context, date string, limit int) ([]Capture, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := ix.db.QueryContext(ctx, `
		SELECT id, captured_at, file_path, size_bytes FROM captures
		WHERE capture_date = ? ORDER BY captured_at ASC LIMIT ?`, date, limit)
	if err != nil {
		return nil, fmt.Errorf("index: list by date: %w", err)
	}
	defer rows.Close()
	var caps []Capture
	for rows.Next() {
		var c Capture
		var at int64
		if err := rows.Scan(&c.ID, &at, &c.Path, &c.Size); err != nil {
			return nil, err
		}
		c.Timestamp = time.Unix(at, 0).UTC()
		caps = append(caps, c)
	}
	return caps, rows.Err()
}

// Stats returns journal counters.
func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := ix.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), COUNT(DISTINCT capture_date)
		FROM captures`).Scan(&s.Captures, &s.TotalBytes, &s.Days)
	if err != nil {
		return Stats{}, fmt.Errorf("index: stats: %w", err)
	}
	return s, nil
}

// Cleanup deletes capture rows and events older than cutoff. It returns the
// number of capture rows removed.
func (ix *Index) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := dbopen.Exec(ctx, ix.db,
		`DELETE FROM captures WHERE captured_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("index: cleanup captures: %w", err)
	}
	n, _ := res.RowsAffected()
	if _, err := dbopen.Exec(ctx, ix.db,
		`DELETE FROM capture_events WHERE created_at < ?`, cutoff.Unix()); err != nil {
		return n, fmt.Errorf("index: cleanup events: %w", err)
	}
	return n, nil
}
