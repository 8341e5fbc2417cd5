// Package storage persists lookup history in sqlite and saved icons on disk.
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// schema is applied on every open; statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS lookups (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    page_url       TEXT NOT NULL,
    host           TEXT NOT NULL,
    status         TEXT NOT NULL,
    source         TEXT NOT NULL DEFAULT 'none',
    icon_count     INTEGER NOT NULL DEFAULT 0,
    best_url       TEXT,
    best_width     INTEGER,
    best_height    INTEGER,
    best_mime_type TEXT,
    duration_ms    INTEGER NOT NULL DEFAULT 0,
    error_message  TEXT,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS llm_calls (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    page_url    TEXT NOT NULL,
    provider    TEXT NOT NULL,
    model       TEXT NOT NULL,
    result_url  TEXT,
    success     BOOLEAN NOT NULL DEFAULT 0,
    duration_ms INTEGER,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_lookups_page_url ON lookups(page_url);
CREATE INDEX IF NOT EXISTS idx_lookups_host ON lookups(host);
CREATE INDEX IF NOT EXISTS idx_lookups_status ON lookups(status);
CREATE INDEX IF NOT EXISTS idx_llm_calls_page_url ON llm_calls(page_url);
`

// NewDatabase opens the sqlite database at dbPath, creating it if needed,
// and applies the schema.
func NewDatabase(dbPath string) (*sqlx.DB, error) {
	// WAL lets history reads run while a lookup is being recorded.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// sqlite has a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}
