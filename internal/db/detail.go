package db

import (
	"database/sql"
	"fmt"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// SaveIssueDetail stages the result of one detail refresh in a single
// transaction. Comments, attachments, metadata, milestones and the labels
// derived from the page replace what an earlier refresh staged, and reporter
// and description are set. The refresh is recorded against the issue's
// current last update so an interrupted detail phase resumes with the next
// unrefreshed issue.
func SaveIssueDetail(db *sql.DB, d *model.IssueDetail) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE issues SET reporter = ?, description = ?, detail_update = last_update WHERE id = ?`,
		d.Reporter, d.Description, d.IssueID,
	)
	if err != nil {
		return fmt.Errorf("updating issue %d detail: %w", d.IssueID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if err := replaceComments(tx, d.IssueID, d.Comments); err != nil {
		return err
	}
	if err := replaceAttachments(tx, d.IssueID, d.Attachments); err != nil {
		return err
	}
	if err := replaceMetadata(tx, d.IssueID, d.Metadata); err != nil {
		return err
	}
	if err := replaceLabels(tx, d.IssueID, originDetail, d.Labels); err != nil {
		return err
	}
	if err := replaceMilestones(tx, d.IssueID, d.Milestones); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetIssueDetail loads the staged detail of an issue, everything the
// importer needs beyond the issue row itself.
func GetIssueDetail(db *sql.DB, issueID int) (*model.IssueDetail, error) {
	issue, err := GetIssue(db, issueID)
	if err != nil {
		return nil, err
	}

	comments, err := ListComments(db, issueID)
	if err != nil {
		return nil, err
	}
	attachments, err := ListAttachments(db, issueID)
	if err != nil {
		return nil, err
	}
	meta, err := ListMetadata(db, issueID)
	if err != nil {
		return nil, err
	}

	d := &model.IssueDetail{
		IssueID:     issue.ID,
		Reporter:    issue.Reporter,
		Description: issue.Description,
		Labels:      issue.Labels,
		Milestones:  issue.Milestones,
		Attachments: attachments,
		Metadata:    meta,
	}
	for _, c := range comments {
		d.Comments = append(d.Comments, *c)
	}
	return d, nil
}
