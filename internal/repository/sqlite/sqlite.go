// Package sqlite implements the persistence gateway on SQLite.
//
// WHY SQLITE?
// The app is a single-server deployment with modest write volume — an
// embedded database removes a whole class of operational work. We use
// modernc.org/sqlite (pure Go translation of the SQLite sources) rather than
// the CGo driver, so the binary cross-compiles without a C toolchain.
//
// SCHEMA OWNERSHIP:
// This package owns all four tables and every statement that touches them.
// Services go through the repository interfaces; nothing else in the codebase
// issues SQL. That single write path is what makes the counter invariants
// enforceable.
package sqlite

import (
	"database/sql"
	"fmt"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository interfaces.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for tests — a fresh throwaway database per connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open only builds the pool; Ping forces a real connection so a bad
	// path fails here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — important because
	// every snippet page view issues a ledger write.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent.
//
// THE UNIQUE CONSTRAINTS ARE LOAD-BEARING:
// snippet_likes(snippet_id, user_id) UNIQUE and the conditional insert on
// snippet_views(view_key) are the correctness backstop for concurrent
// duplicate requests. Two requests can both pass the application-level
// existence check; the constraint guarantees only one of them lands a row
// (and therefore only one increments the counter).
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snippets (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			content     TEXT NOT NULL,
			language    TEXT NOT NULL DEFAULT 'plaintext',
			description TEXT NOT NULL DEFAULT '',
			is_private  INTEGER NOT NULL DEFAULT 0,
			user_id     TEXT NOT NULL DEFAULT '',
			author      TEXT NOT NULL DEFAULT '',
			is_verified INTEGER NOT NULL DEFAULT 0,
			views_count INTEGER NOT NULL DEFAULT 0 CHECK (views_count >= 0),
			likes_count INTEGER NOT NULL DEFAULT 0 CHECK (likes_count >= 0),
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_snippets_created_at ON snippets(created_at);
		CREATE INDEX IF NOT EXISTS idx_snippets_language   ON snippets(language);
	`)
	if err != nil {
		return fmt.Errorf("creating snippets table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snippet_likes (
			id         TEXT PRIMARY KEY,
			snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (snippet_id, user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating snippet_likes table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snippet_views (
			id         TEXT PRIMARY KEY,
			snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
			view_key   TEXT NOT NULL,
			client_key TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_views_key_time ON snippet_views(view_key, created_at);
		CREATE INDEX IF NOT EXISTS idx_views_created  ON snippet_views(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating snippet_views table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS admins (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name  TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating admins table: %w", err)
	}

	return nil
}
