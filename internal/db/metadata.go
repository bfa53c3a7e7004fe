package db

import (
	"database/sql"
	"fmt"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

func replaceMetadata(tx *sql.Tx, issueID int, meta model.MetadataList) error {
	if _, err := tx.Exec(`DELETE FROM issue_metadata WHERE issue_id = ?`, issueID); err != nil {
		return fmt.Errorf("clearing metadata: %w", err)
	}

	for pos, m := range meta {
		// Last value wins for a repeated name; the first position is kept.
		if _, err := tx.Exec(
			`INSERT INTO issue_metadata (issue_id, position, name, value) VALUES (?, ?, ?, ?)
			 ON CONFLICT(issue_id, name) DO UPDATE SET value = excluded.value`,
			issueID, pos, m.Name, m.Value,
		); err != nil {
			return fmt.Errorf("inserting metadata %q: %w", m.Name, err)
		}
	}
	return nil
}

// ListMetadata returns all metadata for an issue in insertion order.
func ListMetadata(db *sql.DB, issueID int) (model.MetadataList, error) {
	rows, err := db.Query(
		`SELECT name, value FROM issue_metadata WHERE issue_id = ? ORDER BY position ASC`,
		issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying metadata: %w", err)
	}
	defer rows.Close()

	var meta model.MetadataList
	for rows.Next() {
		var m model.Metadata
		if err := rows.Scan(&m.Name, &m.Value); err != nil {
			return nil, fmt.Errorf("scanning metadata: %w", err)
		}
		meta = append(meta, m)
	}
	return meta, rows.Err()
}
