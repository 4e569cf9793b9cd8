package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS processed_folders (
	folder          TEXT PRIMARY KEY,
	processed_at    TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	action          TEXT NOT NULL DEFAULT '',
	deleted         INTEGER NOT NULL DEFAULT 0,
	delete_pending  INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	attempts        INTEGER NOT NULL DEFAULT 0,
	last_success_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_processed_folders_outcome ON processed_folders(outcome);
`

const upsertEntry = `
INSERT INTO processed_folders
	(folder, processed_at, outcome, action, deleted, delete_pending, error, attempts, last_success_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(folder) DO UPDATE SET
	processed_at = excluded.processed_at,
	outcome = excluded.outcome,
	action = excluded.action,
	deleted = excluded.deleted,
	delete_pending = excluded.delete_pending,
	error = excluded.error,
	attempts = excluded.attempts,
	last_success_at = excluded.last_success_at
`

// 🗄️ SQLiteStore keeps the history in a processed_folders table.
// Every Record is written through immediately; Flush only checkpoints the WAL.
type SQLiteStore struct {
	path    string
	db      *sql.DB
	entries map[string]Entry
}

// 🏭 NewSQLiteStore creates a store backed by the SQLite database at path
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path, entries: map[string]Entry{}}
}

func (s *SQLiteStore) open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+s.path)
	if err != nil {
		return errors.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		sqliteSchema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return errors.Errorf("preparing database: %w", err)
		}
	}

	s.db = db
	return nil
}

// Load implements Store
func (s *SQLiteStore) Load(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", s.path).Msg("loading history database")

	if err := s.open(ctx); err != nil {
		return &LoadError{Path: s.path, Err: err}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT folder, processed_at, outcome, action, deleted, delete_pending, error, attempts, last_success_at FROM processed_folders`)
	if err != nil {
		return &LoadError{Path: s.path, Err: errors.Errorf("querying entries: %w", err)}
	}
	defer rows.Close()

	entries := map[string]Entry{}
	for rows.Next() {
		var (
			e                        Entry
			processedAt, lastSuccess string
			outcome                  string
		)
		if err := rows.Scan(&e.Folder, &processedAt, &outcome, &e.Action, &e.Deleted, &e.DeletePending, &e.Error, &e.Attempts, &lastSuccess); err != nil {
			return &LoadError{Path: s.path, Err: errors.Errorf("reading entry: %w", err)}
		}
		e.Outcome = Outcome(outcome)
		if e.ProcessedAt, err = parseStamp(processedAt); err != nil {
			return &LoadError{Path: s.path, Err: errors.Errorf("entry %s: %w", e.Folder, err)}
		}
		if e.LastSuccessAt, err = parseStamp(lastSuccess); err != nil {
			return &LoadError{Path: s.path, Err: errors.Errorf("entry %s: %w", e.Folder, err)}
		}
		if err := validateEntry(e); err != nil {
			return &LoadError{Path: s.path, Err: err}
		}
		entries[e.Folder] = e
	}
	if err := rows.Err(); err != nil {
		return &LoadError{Path: s.path, Err: err}
	}

	s.entries = entries
	logger.Debug().Int("entries", len(entries)).Msg("history loaded")
	return nil
}

// Get implements Store
func (s *SQLiteStore) Get(folder string) (Entry, bool) {
	e, ok := s.entries[folder]
	return e, ok
}

// IsProcessed implements Store
func (s *SQLiteStore) IsProcessed(folder string) bool {
	e, ok := s.entries[folder]
	return ok && e.Succeeded()
}

// Record implements Store
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	if err := s.open(ctx); err != nil {
		return err
	}

	prev, ok := s.entries[e.Folder]
	next := merge(prev, ok, e)

	_, err := s.db.ExecContext(ctx, upsertEntry,
		next.Folder,
		formatStamp(next.ProcessedAt),
		string(next.Outcome),
		next.Action,
		next.Deleted,
		next.DeletePending,
		next.Error,
		next.Attempts,
		formatStamp(next.LastSuccessAt),
	)
	if err != nil {
		return errors.Errorf("upserting %s: %w", next.Folder, err)
	}

	s.entries[next.Folder] = next
	return nil
}

// Entries implements Store
func (s *SQLiteStore) Entries() []Entry {
	return sortedEntries(s.entries)
}

// Flush implements Store
func (s *SQLiteStore) Flush(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
		return errors.Errorf("checkpointing history: %w", err)
	}
	return nil
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		_ = s.db.Close()
		s.db = nil
		return errors.Errorf("checkpointing history: %w", err)
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return errors.Errorf("closing history: %w", err)
	}
	return nil
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseStamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
