// Package storage opens the service's SQLite database and applies the schema.
// The *sql.DB handle is constructor-injected into each repo; there is no
// package-level singleton so tests can substitute their own database.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	full_name  TEXT,
	username   TEXT,
	avatar_url TEXT,
	timezone   TEXT NOT NULL DEFAULT 'UTC',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	token_hash TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL,
	last_seen  TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS habits (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	name             TEXT NOT NULL,
	description      TEXT,
	emoji            TEXT NOT NULL,
	color            TEXT NOT NULL,
	reminder_time    TEXT,
	reminder_enabled INTEGER NOT NULL DEFAULT 1,
	active_days      TEXT NOT NULL,
	target_count     INTEGER NOT NULL DEFAULT 1,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id);

CREATE TABLE IF NOT EXISTS habit_entries (
	id           TEXT PRIMARY KEY,
	habit_id     TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
	user_id      TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	completed_at TEXT NOT NULL,
	count        INTEGER NOT NULL DEFAULT 1,
	notes        TEXT,
	created_at   TIMESTAMP NOT NULL,
	UNIQUE (habit_id, completed_at)
);

CREATE INDEX IF NOT EXISTS idx_entries_user_date ON habit_entries(user_id, completed_at);

CREATE TABLE IF NOT EXISTS focus_sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	habit_id   TEXT REFERENCES habits(id) ON DELETE SET NULL,
	minutes    INTEGER NOT NULL,
	started_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// Open creates (if needed) and opens the database at path, applying the
// schema. The habit_entries UNIQUE(habit_id, completed_at) constraint is the
// storage-level backstop for the one-entry-per-day invariant.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	// Pragmas go on the DSN so every pooled connection gets them;
	// foreign_keys in particular is per-connection.
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

var memSeq atomic.Int64

// OpenMemory opens a throwaway in-memory database for tests. Each call gets
// its own database; cache=shared only spans the pooled connections of this
// handle.
func OpenMemory() (*sql.DB, error) {
	n := memSeq.Add(1)
	return Open(fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", n))
}
