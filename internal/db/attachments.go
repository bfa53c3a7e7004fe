package db

import (
	"database/sql"
	"fmt"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// replaceAttachments deletes an issue's staged attachments and inserts the
// given ones in page order.
func replaceAttachments(tx *sql.Tx, issueID int, attachments []model.Attachment) error {
	if _, err := tx.Exec(`DELETE FROM attachments WHERE issue_id = ?`, issueID); err != nil {
		return fmt.Errorf("clearing attachments: %w", err)
	}

	for _, a := range attachments {
		if _, err := tx.Exec(
			`INSERT INTO attachments (issue_id, name, url) VALUES (?, ?, ?)`,
			issueID, a.Name, a.URL,
		); err != nil {
			return fmt.Errorf("inserting attachment %q: %w", a.Name, err)
		}
	}
	return nil
}

// ListAttachments returns an issue's attachments in the order they were staged.
func ListAttachments(db *sql.DB, issueID int) ([]model.Attachment, error) {
	rows, err := db.Query(
		`SELECT id, issue_id, name, url FROM attachments WHERE issue_id = ? ORDER BY id ASC`,
		issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attachments: %w", err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.IssueID, &a.Name, &a.URL); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
