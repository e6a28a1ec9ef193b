// Package db persists goals and trigger bookkeeping in a single sqlite
// file. One DB handle per process; the generator, the trigger, and the
// chat surface all share it.
package db

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// DB is the goal store handle.
type DB struct {
	conn *sql.DB
}

// Open opens the goal store at path, creating it and applying the
// schema on first use. Pass ":memory:" for an ephemeral store in tests.
// WAL keeps activity lookups from blocking the generator's batch
// inserts, and the busy timeout covers a scheduled trigger and a chat
// command hitting the file at the same moment.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening goal store: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}
