// Package sqlitestore provides the SQLite-backed relational store for
// books, comments, reports and the moderation audit log.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Amine830/ReadSphere-sub000/internal/moderation"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// schema is applied on open. Timestamps are stored as RFC3339Nano text.
// The unique index on (comment_id, reporter_id) is the hard backstop for
// the one-report-per-user-per-comment invariant under concurrency.
const schema = `
CREATE TABLE IF NOT EXISTS books (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id      INTEGER NOT NULL,
	title         TEXT    NOT NULL DEFAULT '',
	is_deleted    INTEGER NOT NULL DEFAULT 0,
	deleted_at    TEXT,
	deleted_by    INTEGER,
	comment_count INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id              INTEGER NOT NULL REFERENCES books(id),
	author_id            INTEGER NOT NULL,
	content              TEXT    NOT NULL,
	is_edited            INTEGER NOT NULL DEFAULT 0,
	is_deleted           INTEGER NOT NULL DEFAULT 0,
	is_admin_deleted     INTEGER NOT NULL DEFAULT 0,
	pending_report_count INTEGER NOT NULL DEFAULT 0,
	deleted_at           TEXT,
	deleted_by           INTEGER,
	created_at           TEXT    NOT NULL,
	updated_at           TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_book ON comments(book_id);

CREATE TABLE IF NOT EXISTS reports (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	comment_id       INTEGER NOT NULL REFERENCES comments(id),
	reporter_id      INTEGER NOT NULL,
	reason           TEXT    NOT NULL,
	status           TEXT    NOT NULL DEFAULT 'pending',
	created_at       TEXT    NOT NULL,
	resolved_at      TEXT,
	resolved_by      INTEGER,
	resolution_notes TEXT    NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_reports_comment_reporter ON reports(comment_id, reporter_id);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);

CREATE TABLE IF NOT EXISTS moderation_actions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	moderator_id INTEGER NOT NULL,
	comment_id   INTEGER NOT NULL,
	action_type  TEXT    NOT NULL,
	reason       TEXT    NOT NULL,
	created_at   TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_actions_created ON moderation_actions(created_at);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Options configures the SQLite store.
type Options struct {
	// Path to the database file. Parent directories will be created if
	// needed.
	Path string

	// BusyTimeout is how long a writer waits on the database lock
	// before failing with SQLITE_BUSY. If zero, 5 seconds is used.
	BusyTimeout time.Duration
}

// Open creates or opens the database at the specified path and applies
// the schema. Write transactions take the database lock immediately
// (_txlock=immediate), so concurrent writers serialize instead of
// failing at commit time.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		opts.Path = "readsphere.db"
	}
	if opts.BusyTimeout == 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	dir := filepath.Dir(opts.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
		opts.Path, opts.BusyTimeout.Milliseconds())

	db, err := otelsql.Open("sqlite", dsn,
		otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ensure Store implements the engine's persistence interface.
var _ moderation.Store = (*Store)(nil)

// WithTx runs fn inside a single write transaction. The transaction is
// immediate, so the count-and-compare sequences inside fn are serialized
// against concurrent writers on the same database. Lock contention is
// classified as Transient for the caller's retry policy.
func (s *Store) WithTx(ctx context.Context, fn func(tx moderation.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if isBusy(err) {
			return moderation.Transient(err)
		}
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Tx{tx: tx}); err != nil {
		_ = tx.Rollback()
		if isBusy(err) {
			return moderation.Transient(err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isBusy(err) {
			return moderation.Transient(err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Tx implements moderation.Tx on top of a live *sql.Tx.
type Tx struct {
	tx *sql.Tx
}

var _ moderation.Tx = (*Tx)(nil)

// isBusy reports whether err is SQLite lock contention (SQLITE_BUSY or
// SQLITE_LOCKED, including extended codes).
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// isUniqueViolation reports whether err is a unique-constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
