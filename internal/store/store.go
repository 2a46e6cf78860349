// Package store owns the sqlite database that backs the provider catalog
// cache. All access goes through the repository; nothing else opens the
// database handle. Every cache table is scoped by account_id so two accounts
// can sync concurrently without touching each other's rows.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	base_url     TEXT NOT NULL,
	username     TEXT NOT NULL,
	password     TEXT NOT NULL,
	updated_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	account_id  TEXT NOT NULL,
	media_kind  TEXT NOT NULL,
	category_id TEXT NOT NULL,
	name        TEXT NOT NULL,
	order_index INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (account_id, media_kind, category_id)
);

CREATE TABLE IF NOT EXISTS streams (
	account_id   TEXT NOT NULL,
	media_kind   TEXT NOT NULL,
	category_id  TEXT NOT NULL,
	stream_id    TEXT NOT NULL,
	title        TEXT NOT NULL,
	playback_url TEXT NOT NULL,
	logo_url     TEXT,
	PRIMARY KEY (account_id, media_kind, category_id, stream_id)
);

CREATE TABLE IF NOT EXISTS series (
	account_id  TEXT NOT NULL,
	category_id TEXT NOT NULL,
	series_id   TEXT NOT NULL,
	title       TEXT NOT NULL,
	cover_url   TEXT,
	synopsis    TEXT,
	PRIMARY KEY (account_id, category_id, series_id)
);

CREATE TABLE IF NOT EXISTS episodes (
	account_id   TEXT NOT NULL,
	series_id    TEXT NOT NULL,
	episode_id   TEXT NOT NULL,
	season       INTEGER NOT NULL,
	episode_num  INTEGER NOT NULL,
	title        TEXT NOT NULL,
	playback_url TEXT NOT NULL,
	overview     TEXT,
	PRIMARY KEY (account_id, series_id, episode_id)
);

CREATE TABLE IF NOT EXISTS favorites (
	favorite_key TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL,
	media_kind   TEXT NOT NULL,
	item_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	playback_url TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_streams_kind ON streams (account_id, media_kind);
CREATE INDEX IF NOT EXISTS idx_favorites_account ON favorites (account_id);
`

// Store wraps the sqlite handle and applies the schema on open.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// tests. WAL mode keeps readers unblocked while a sync transaction writes.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	// One connection: sqlite write serialization is handled here rather than
	// by contending on the file lock.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for queries.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn inside a transaction, rolling back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
