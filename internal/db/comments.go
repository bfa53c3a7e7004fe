package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// replaceComments deletes an issue's staged comments and inserts the given
// ones. A detail refresh never appends, so reruns cannot accumulate duplicates.
func replaceComments(tx *sql.Tx, issueID int, comments []model.Comment) error {
	if _, err := tx.Exec(`DELETE FROM comments WHERE issue_id = ?`, issueID); err != nil {
		return fmt.Errorf("clearing comments: %w", err)
	}

	for _, c := range comments {
		if _, err := tx.Exec(
			`INSERT INTO comments (issue_id, created_at, author, author_link, body)
			 VALUES (?, ?, ?, ?, ?)`,
			issueID, c.CreatedAt.UTC().Unix(), c.Author, c.AuthorLink, c.Body,
		); err != nil {
			return fmt.Errorf("inserting comment: %w", err)
		}
	}
	return nil
}

// ListComments retrieves all comments for an issue, ordered by timestamp
// ascending. Comments sharing a timestamp keep their page order.
func ListComments(db *sql.DB, issueID int) ([]*model.Comment, error) {
	rows, err := db.Query(
		`SELECT id, issue_id, created_at, author, author_link, body
		 FROM comments WHERE issue_id = ? ORDER BY created_at ASC, id ASC`, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*model.Comment, 0)
	for rows.Next() {
		c, err := scanCommentFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comment rows: %w", err)
	}

	return comments, nil
}

// scanCommentFrom scans a single comment from any scanner (*sql.Row or *sql.Rows).
func scanCommentFrom(s scanner) (*model.Comment, error) {
	var c model.Comment
	var createdAt int64

	if err := s.Scan(&c.ID, &c.IssueID, &createdAt, &c.Author, &c.AuthorLink, &c.Body); err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &c, nil
}
