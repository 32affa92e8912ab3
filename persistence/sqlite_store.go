package persistence

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"hlswatch/registry"
)

// SQLiteStore is an alternate registry.ConfigStore backend for
// deployments that want a queryable config file instead of a flat
// JSON document. Schema and access pattern are new (the teacher never
// persists stream config to SQLite — its SQLite usage is a
// generated-M3U-text double buffer), but the "open on construction,
// migrate on demand" idiom matches how the pack's other SQLite-backed
// repos initialize their stores.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at
// path and ensures the streams table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS streams (
		stream_id TEXT PRIMARY KEY,
		master_url TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns every persisted stream row.
func (s *SQLiteStore) Load() ([]registry.StreamConfig, error) {
	rows, err := s.db.Query(`SELECT stream_id, master_url, created_at FROM streams`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.StreamConfig
	for rows.Next() {
		var c registry.StreamConfig
		var createdUnix int64
		if err := rows.Scan(&c.StreamID, &c.MasterURL, &createdUnix); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(createdUnix, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// Save replaces the full stream table contents inside one transaction,
// the same "replace the whole snapshot" idea as the teacher's
// rename-based double-buffer swap in main.go's swapDb, adapted to a
// SQL transaction instead of a file rename.
func (s *SQLiteStore) Save(cfgs []registry.StreamConfig) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM streams`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO streams (stream_id, master_url, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cfgs {
		if _, err := stmt.Exec(c.StreamID, c.MasterURL, c.CreatedAt.Unix()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
