package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// Meta keys used by the pipeline.
const (
	MetaListNextPage = "list_next_page"
	MetaProject      = "source_project"
)

// GetMeta returns the value stored under key, or ErrNotFound.
func GetMeta(db *sql.DB, key string) (string, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading meta %q: %w", key, err)
	}
	return val, nil
}

// SetMeta stores value under key, replacing any previous value.
func SetMeta(db *sql.DB, key, value string) error {
	if _, err := db.Exec(
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	); err != nil {
		return fmt.Errorf("writing meta %q: %w", key, err)
	}
	return nil
}

// DeleteMeta removes key. Removing a missing key is not an error.
func DeleteMeta(db *sql.DB, key string) error {
	if _, err := db.Exec(`DELETE FROM meta WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting meta %q: %w", key, err)
	}
	return nil
}
