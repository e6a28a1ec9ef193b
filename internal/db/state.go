package db

import (
	"database/sql"
	"fmt"
)

// GetState returns the value for a bookkeeping key, or "" if unset.
func (d *DB) GetState(key string) (string, error) {
	var value string
	err := d.conn.QueryRow("SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting state %q: %w", key, err)
	}
	return value, nil
}

// SetState upserts a bookkeeping key.
func (d *DB) SetState(key, value string) error {
	_, err := d.conn.Exec(
		`INSERT INTO state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		key, value)
	if err != nil {
		return fmt.Errorf("setting state %q: %w", key, err)
	}
	return nil
}
