package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Label origins. Each phase owns the labels it derives and replaces them
// whenever it stages the issue again.
const (
	originList   = "list"
	originDetail = "detail"
)

// replaceLabels sets the lowercase labels an origin contributes to an
// issue, dropping the ones it contributed before. Blanks are ignored.
func replaceLabels(tx execer, issueID int, origin string, labels []string) error {
	if _, err := tx.Exec(
		`DELETE FROM issue_labels WHERE issue_id = ? AND origin = ?`, issueID, origin,
	); err != nil {
		return fmt.Errorf("clearing %s labels: %w", origin, err)
	}
	for _, name := range labels {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO issue_labels (issue_id, label, origin) VALUES (?, ?, ?)`,
			issueID, name, origin,
		); err != nil {
			return fmt.Errorf("linking label %q: %w", name, err)
		}
	}
	return nil
}

// replaceMilestones sets the milestone titles of an issue in the order the
// source gave them. Titles keep their case because target milestones match
// case-sensitively.
func replaceMilestones(tx execer, issueID int, milestones []string) error {
	if _, err := tx.Exec(`DELETE FROM issue_milestones WHERE issue_id = ?`, issueID); err != nil {
		return fmt.Errorf("clearing milestones: %w", err)
	}
	for i, title := range milestones {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO issue_milestones (issue_id, position, milestone) VALUES (?, ?, ?)`,
			issueID, i, title,
		); err != nil {
			return fmt.Errorf("linking milestone %q: %w", title, err)
		}
	}
	return nil
}

// GetIssueLabels returns the label names attached to an issue, sorted alphabetically.
func GetIssueLabels(db *sql.DB, issueID int) ([]string, error) {
	return queryNames(db,
		`SELECT DISTINCT label FROM issue_labels WHERE issue_id = ? ORDER BY label`, issueID)
}

// GetIssueMilestones returns the milestone titles attached to an issue in
// source order.
func GetIssueMilestones(db *sql.DB, issueID int) ([]string, error) {
	return queryNames(db,
		`SELECT milestone FROM issue_milestones WHERE issue_id = ? ORDER BY position, milestone`, issueID)
}

func queryNames(db *sql.DB, query string, issueID int) ([]string, error) {
	rows, err := db.Query(query, issueID)
	if err != nil {
		return nil, fmt.Errorf("querying names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// HydrateLabels bulk-loads labels for a set of issues, populating each issue's
// Labels field. This avoids N+1 queries when displaying lists.
func HydrateLabels(db *sql.DB, issues []*model.Issue) error {
	return hydrateNames(db, issues,
		`SELECT DISTINCT issue_id, label FROM issue_labels WHERE issue_id IN (%s) ORDER BY label`,
		func(issue *model.Issue, name string) { issue.Labels = append(issue.Labels, name) },
	)
}

// HydrateMilestones bulk-loads milestones for a set of issues.
func HydrateMilestones(db *sql.DB, issues []*model.Issue) error {
	return hydrateNames(db, issues,
		`SELECT issue_id, milestone FROM issue_milestones WHERE issue_id IN (%s) ORDER BY position, milestone`,
		func(issue *model.Issue, name string) { issue.Milestones = append(issue.Milestones, name) },
	)
}

// hydrateNames runs queryFmt (with one %s for the id placeholders) in
// batches so large pages stay under SQLite's bound parameter limit.
func hydrateNames(db *sql.DB, issues []*model.Issue, queryFmt string, add func(*model.Issue, string)) error {
	const batchSize = 500

	issueMap := make(map[int]*model.Issue, len(issues))
	for _, issue := range issues {
		issueMap[issue.ID] = issue
	}

	for start := 0; start < len(issues); start += batchSize {
		end := min(start+batchSize, len(issues))
		ids := make([]any, 0, end-start)
		for _, issue := range issues[start:end] {
			ids = append(ids, issue.ID)
		}

		rows, err := db.Query(fmt.Sprintf(queryFmt, makePlaceholders(len(ids))), ids...)
		if err != nil {
			return fmt.Errorf("querying names: %w", err)
		}

		for rows.Next() {
			var issueID int
			var name string
			if err := rows.Scan(&issueID, &name); err != nil {
				rows.Close()
				return fmt.Errorf("scanning name: %w", err)
			}
			if issue, ok := issueMap[issueID]; ok {
				add(issue, name)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	return nil
}
