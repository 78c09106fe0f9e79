package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLite persists update events to a SQLite database.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens (or creates) the database and runs migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while a batch run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLite{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS update_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_ts     INTEGER NOT NULL,
			key        TEXT NOT NULL,
			mode       TEXT NOT NULL,
			rows_added INTEGER NOT NULL,
			changed    INTEGER NOT NULL,
			error      TEXT,
			elapsed_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_update_run ON update_events(run_ts)`,
		`CREATE INDEX IF NOT EXISTS idx_update_key ON update_events(key)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordUpdate inserts one event.
func (r *SQLite) RecordUpdate(evt UpdateEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO update_events (run_ts, key, mode, rows_added, changed, error, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		evt.Run.Unix(), evt.Key, evt.Mode, evt.RowsAdded, boolInt(evt.Changed), evt.Err,
		evt.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert update event: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (r *SQLite) Close() error { return r.db.Close() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
