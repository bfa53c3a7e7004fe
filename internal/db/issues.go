package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// scanner abstracts *sql.Row and *sql.Rows for scanning a single row.
type scanner interface {
	Scan(dest ...any) error
}

const issueColumns = `id, link, title, assignee, status, severity, reporter, description,
	last_update, updated, done, target_id`

// ListOptions holds filtering and pagination options for ListIssues.
type ListOptions struct {
	OnlyPending bool   // done = 0
	OnlyDone    bool   // done = 1
	Status      string // exact source status, case-insensitive
	Label       string // issue must carry this label
	Limit       int    // max results
	Offset      int    // for pagination
}

// UpsertListedIssue stages a row seen during the list phase, keyed by the
// source id. A new row, or a row whose last update moved, is flagged as
// updated so the detail phase refetches it. The done flag, target id, and
// detail fields of an existing row are never touched. The labels derived
// from the row replace the ones an earlier listing derived. It reports
// whether the row was flagged.
func UpsertListedIssue(db *sql.DB, issue *model.Issue, labels []string) (bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	lastUpdate := issue.LastUpdate.UTC().Unix()

	var prev int64
	err = tx.QueryRow(`SELECT last_update FROM issues WHERE id = ?`, issue.ID).Scan(&prev)
	flagged := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		flagged = true
		if _, err := tx.Exec(
			`INSERT INTO issues (id, link, title, assignee, status, severity, last_update, updated)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
			issue.ID, issue.Link, issue.Title, issue.Assignee,
			string(issue.Status), string(issue.Severity), lastUpdate,
		); err != nil {
			return false, fmt.Errorf("inserting issue %d: %w", issue.ID, err)
		}
	case err != nil:
		return false, fmt.Errorf("querying issue %d: %w", issue.ID, err)
	default:
		flagged = prev != lastUpdate
		if _, err := tx.Exec(
			`UPDATE issues
			 SET link = ?, title = ?, assignee = ?, status = ?, severity = ?, last_update = ?,
			     updated = CASE WHEN ? THEN 1 ELSE updated END
			 WHERE id = ?`,
			issue.Link, issue.Title, issue.Assignee,
			string(issue.Status), string(issue.Severity), lastUpdate,
			boolToInt(flagged), issue.ID,
		); err != nil {
			return false, fmt.Errorf("updating issue %d: %w", issue.ID, err)
		}
	}

	if err := replaceLabels(tx, issue.ID, originList, labels); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return flagged, nil
}

// GetIssue retrieves a staged issue by ID with its labels and milestones.
func GetIssue(db *sql.DB, id int) (*model.Issue, error) {
	row := db.QueryRow(`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	issue, err := scanIssue(row)
	if err != nil {
		return nil, err
	}
	if err := hydrate(db, []*model.Issue{issue}); err != nil {
		return nil, err
	}
	return issue, nil
}

// ListIssuesNeedingDetail returns issues flagged as updated whose detail
// refresh has not been staged for their current last update, in ascending
// id order. Issues already imported are excluded.
func ListIssuesNeedingDetail(db *sql.DB) ([]*model.Issue, error) {
	return queryIssues(db,
		`SELECT `+issueColumns+` FROM issues
		 WHERE updated = 1 AND done = 0 AND detail_update != last_update
		 ORDER BY id ASC`,
	)
}

// ListPendingIssues returns issues not yet imported whose detail has been
// staged for their current last update, in ascending id order. A positive
// limit caps the number of rows returned.
func ListPendingIssues(db *sql.DB, limit int) ([]*model.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues
		WHERE done = 0 AND detail_update = last_update
		ORDER BY id ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return queryIssues(db, query, args...)
}

// CountAwaitingDetail counts issues not yet imported whose detail refresh is
// missing or older than their last update.
func CountAwaitingDetail(db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM issues WHERE done = 0 AND detail_update != last_update`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting issues awaiting detail: %w", err)
	}
	return n, nil
}

// ListIssues retrieves staged issues matching the given filters in ascending
// id order. It returns the matching issues, the total count of matching rows
// (ignoring Limit/Offset), and an error.
func ListIssues(db *sql.DB, opts ListOptions) ([]*model.Issue, int, error) {
	var (
		whereClauses []string
		args         []any
	)

	if opts.OnlyPending && opts.OnlyDone {
		return nil, 0, fmt.Errorf("pending and done filters are mutually exclusive")
	}
	if opts.OnlyPending {
		whereClauses = append(whereClauses, "done = 0")
	}
	if opts.OnlyDone {
		whereClauses = append(whereClauses, "done = 1")
	}
	if opts.Status != "" {
		whereClauses = append(whereClauses, "status = ? COLLATE NOCASE")
		args = append(args, opts.Status)
	}
	if opts.Label != "" {
		whereClauses = append(whereClauses,
			"EXISTS (SELECT 1 FROM issue_labels il WHERE il.issue_id = issues.id AND il.label = ?)")
		args = append(args, strings.ToLower(opts.Label))
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM issues `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting issues: %w", err)
	}

	query := `SELECT ` + issueColumns + ` FROM issues ` + whereSQL + ` ORDER BY id ASC`
	mainArgs := make([]any, len(args))
	copy(mainArgs, args)
	if opts.Limit > 0 {
		query += " LIMIT ?"
		mainArgs = append(mainArgs, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			mainArgs = append(mainArgs, opts.Offset)
		}
	}

	issues, err := queryIssues(db, query, mainArgs...)
	if err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

// MarkImported records the target id of an issue, sets done and clears
// updated. It is the single commit point of a per-issue import.
func MarkImported(db *sql.DB, id, targetID int) error {
	res, err := db.Exec(
		`UPDATE issues SET done = 1, updated = 0, target_id = ? WHERE id = ?`,
		targetID, id,
	)
	if err != nil {
		return fmt.Errorf("marking issue %d imported: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats summarizes the staging store.
type Stats struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Done        int `json:"done"`
	NeedsDetail int `json:"needs_detail"`
	Closed      int `json:"closed"`
	Comments    int `json:"comments"`
	Attachments int `json:"attachments"`
}

// GetStats counts staged rows by state.
func GetStats(db *sql.DB) (*Stats, error) {
	var s Stats
	err := db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN done = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN done = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN done = 0 AND detail_update != last_update THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'Closed' COLLATE NOCASE THEN 1 ELSE 0 END), 0)
		FROM issues`,
	).Scan(&s.Total, &s.Pending, &s.Done, &s.NeedsDetail, &s.Closed)
	if err != nil {
		return nil, fmt.Errorf("counting issues: %w", err)
	}

	if err := db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&s.Comments); err != nil {
		return nil, fmt.Errorf("counting comments: %w", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM attachments`).Scan(&s.Attachments); err != nil {
		return nil, fmt.Errorf("counting attachments: %w", err)
	}

	return &s, nil
}

// --- helpers ---

func queryIssues(db *sql.DB, query string, args ...any) ([]*model.Issue, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying issues: %w", err)
	}
	defer rows.Close()

	issues := make([]*model.Issue, 0)
	for rows.Next() {
		issue, err := scanIssueFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning issue row: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating issue rows: %w", err)
	}
	// Close before hydrating: the pool holds a single connection.
	rows.Close()

	if err := hydrate(db, issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// scanIssueFrom scans a single issue from any scanner (*sql.Row or *sql.Rows).
func scanIssueFrom(s scanner) (*model.Issue, error) {
	var i model.Issue
	var lastUpdate int64
	var status, severity string

	err := s.Scan(
		&i.ID, &i.Link, &i.Title, &i.Assignee, &status, &severity,
		&i.Reporter, &i.Description, &lastUpdate,
		&i.Updated, &i.Done, &i.TargetID,
	)
	if err != nil {
		return nil, err
	}

	i.Status = model.Status(status)
	i.Severity = model.Severity(severity)
	i.LastUpdate = time.Unix(lastUpdate, 0).UTC()

	return &i, nil
}

// scanIssue scans a single issue from a *sql.Row, returning ErrNotFound
// for sql.ErrNoRows so callers can distinguish "not found" from other errors.
func scanIssue(row *sql.Row) (*model.Issue, error) {
	issue, err := scanIssueFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning issue: %w", err)
	}
	return issue, nil
}

// hydrate bulk-loads labels and milestones for a set of issues.
func hydrate(db *sql.DB, issues []*model.Issue) error {
	if err := HydrateLabels(db, issues); err != nil {
		return fmt.Errorf("hydrating labels: %w", err)
	}
	if err := HydrateMilestones(db, issues); err != nil {
		return fmt.Errorf("hydrating milestones: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// makePlaceholders returns "?, ?, ..." with n placeholders.
func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
