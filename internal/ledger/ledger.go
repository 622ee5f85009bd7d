// Package ledger records import runs in a local SQLite file so unchanged
// inputs can be skipped on the next run.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one completed import or sync run.
type Entry struct {
	ID         string
	Entity     string
	File       string // source file path as given to the importer
	Checksum   string // hex SHA-256 of the source bytes and the run settings
	Mode       string // "import" or "sync"
	Rows       int
	Written    int
	Skipped    int
	Filtered   int
	Failed     int
	FinishedAt time.Time
}

// Ledger is a handle on the ledger database.
type Ledger struct {
	conn *sql.DB
}

// Open opens (or creates) the ledger at path. ":memory:" opens a private
// in-memory ledger.
func Open(path string) (*Ledger, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// one writer; also keeps a :memory: database alive across calls
	conn.SetMaxOpenConns(1)

	l := &Ledger{conn: conn}
	if err := l.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return l, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.conn.Close()
}

func (l *Ledger) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			entity TEXT NOT NULL,
			file TEXT NOT NULL,
			checksum TEXT NOT NULL,
			mode TEXT NOT NULL DEFAULT 'import',
			rows INTEGER NOT NULL DEFAULT 0,
			written INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			filtered INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			finished_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_entity_file ON runs(entity, file, mode, finished_at)`,
	}
	for _, m := range migrations {
		if _, err := l.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectColumns = `id, entity, file, checksum, mode, rows, written, skipped, filtered, failed, finished_at`

// Lookup returns the most recent run of mode for entity and file.
func (l *Ledger) Lookup(ctx context.Context, entity, file, mode string) (Entry, bool, error) {
	row := l.conn.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM runs
		WHERE entity = ? AND file = ? AND mode = ?
		ORDER BY finished_at DESC LIMIT 1`,
		entity, file, mode)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup %s: %w", entity, err)
	}
	return e, true, nil
}

// Record stores e. A missing ID or FinishedAt is filled in.
func (l *Ledger) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	if e.Mode == "" {
		e.Mode = "import"
	}

	_, err := l.conn.ExecContext(ctx,
		`INSERT INTO runs (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Entity, e.File, e.Checksum, e.Mode,
		e.Rows, e.Written, e.Skipped, e.Filtered, e.Failed,
		e.FinishedAt.UTC().Format(timeLayout))
	if err != nil {
		return Entry{}, fmt.Errorf("record %s: %w", e.Entity, err)
	}
	return e, nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (l *Ledger) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT ` + selectColumns + ` FROM runs ORDER BY finished_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e        Entry
		finished string
	)
	err := s.Scan(&e.ID, &e.Entity, &e.File, &e.Checksum, &e.Mode,
		&e.Rows, &e.Written, &e.Skipped, &e.Filtered, &e.Failed, &finished)
	if err != nil {
		return Entry{}, err
	}
	e.FinishedAt, err = time.Parse(timeLayout, finished)
	if err != nil {
		return Entry{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return e, nil
}
