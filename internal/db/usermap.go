package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// PutUserMappings stores mappings in one transaction. A mapping for a
// source identity that is already stored replaces it.
func PutUserMappings(db *sql.DB, mappings []model.UserMapping) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range mappings {
		if _, err := tx.Exec(
			`INSERT INTO usermap (source_id, target_id) VALUES (?, ?)
			 ON CONFLICT(source_id) DO UPDATE SET target_id = excluded.target_id`,
			m.SourceID, m.TargetID,
		); err != nil {
			return fmt.Errorf("storing mapping for %q: %w", m.SourceID, err)
		}
	}

	return tx.Commit()
}

// GetUserMapping returns the target identity for a source identity, or ErrNotFound.
func GetUserMapping(db *sql.DB, sourceID string) (string, error) {
	var target string
	err := db.QueryRow(`SELECT target_id FROM usermap WHERE source_id = ?`, sourceID).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading mapping for %q: %w", sourceID, err)
	}
	return target, nil
}

// ListUserMappings returns every stored mapping ordered by source identity.
func ListUserMappings(db *sql.DB) ([]model.UserMapping, error) {
	rows, err := db.Query(`SELECT source_id, target_id FROM usermap ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("querying user map: %w", err)
	}
	defer rows.Close()

	mappings := make([]model.UserMapping, 0)
	for rows.Next() {
		var m model.UserMapping
		if err := rows.Scan(&m.SourceID, &m.TargetID); err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}
