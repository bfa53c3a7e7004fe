package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IDPrefix is the prefix used for staged work item IDs in display and JSON output.
const IDPrefix = "WI"

// NoTarget is the target ID of an issue that has not been imported yet.
const NoTarget = -1

// Status is the workflow state reported by the legacy tracker. Values are
// free-form ("Active", "Proposed", "Fixed", "Closed", ...) and stored as scraped.
type Status string

const (
	StatusActive   Status = "Active"
	StatusProposed Status = "Proposed"
	StatusFixed    Status = "Fixed"
	StatusClosed   Status = "Closed"
)

// IsClosed reports whether the status marks the issue as closed on the source.
func (s Status) IsClosed() bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(StatusClosed))
}

// Color returns a color name string suitable for terminal rendering.
func (s Status) Color() string {
	switch {
	case s.IsClosed():
		return "gray"
	case strings.EqualFold(string(s), string(StatusFixed)):
		return "green"
	case strings.EqualFold(string(s), string(StatusProposed)):
		return "blue"
	case strings.EqualFold(string(s), string(StatusActive)):
		return "yellow"
	default:
		return "white"
	}
}

// Severity is the normalized, lowercase severity of an issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Color returns a color name string suitable for terminal rendering.
func (s Severity) Color() string {
	switch s {
	case SeverityHigh:
		return "red"
	case SeverityMedium:
		return "yellow"
	case SeverityLow:
		return "gray"
	default:
		return "white"
	}
}

// FormatID returns the display form of a work item ID, e.g. "WI-5".
func FormatID(id int) string {
	return fmt.Sprintf("%s-%d", IDPrefix, id)
}

// ParseID accepts both "WI-5" and "5" and returns the numeric ID.
// The prefix check is case-insensitive; len(prefix) is safe to use for
// slicing because IDPrefix is ASCII and ToUpper preserves its byte length.
func ParseID(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("empty issue ID")
	}

	prefix := IDPrefix + "-"
	if strings.HasPrefix(strings.ToUpper(s), prefix) {
		s = s[len(prefix):]
	}

	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid issue ID %q: %w", input, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid issue ID %q: must be positive", input)
	}

	return id, nil
}

// Issue is a staged work item scraped from the legacy tracker.
//
// Updated is set whenever the list phase sees a new or changed row and is
// cleared once the issue has been imported. Done is monotonic: once an issue
// has been imported it is never cleared by normal operation.
type Issue struct {
	ID          int
	Link        string
	Title       string
	Assignee    string
	Status      Status
	Severity    Severity
	Reporter    string
	Description string
	LastUpdate  time.Time
	Updated     bool
	Done        bool
	TargetID    int
	Labels      []string
	Milestones  []string
}

// Imported reports whether the issue has been created on the target.
func (i Issue) Imported() bool {
	return i.Done && i.TargetID != NoTarget
}

// issueJSON is the JSON wire format for Issue.
type issueJSON struct {
	ID          string   `json:"id"`
	Link        string   `json:"link"`
	Title       string   `json:"title"`
	Assignee    string   `json:"assignee"`
	Status      string   `json:"status"`
	Severity    string   `json:"severity"`
	Reporter    string   `json:"reporter"`
	Description string   `json:"description,omitempty"`
	LastUpdate  string   `json:"last_update"`
	Updated     bool     `json:"updated"`
	Done        bool     `json:"done"`
	TargetID    *int     `json:"target_id,omitempty"`
	Labels      []string `json:"labels"`
	Milestones  []string `json:"milestones"`
}

// MarshalJSON implements custom JSON serialization for Issue.
func (i Issue) MarshalJSON() ([]byte, error) {
	j := issueJSON{
		ID:          FormatID(i.ID),
		Link:        i.Link,
		Title:       i.Title,
		Assignee:    i.Assignee,
		Status:      string(i.Status),
		Severity:    string(i.Severity),
		Reporter:    i.Reporter,
		Description: i.Description,
		LastUpdate:  i.LastUpdate.UTC().Format(time.RFC3339),
		Updated:     i.Updated,
		Done:        i.Done,
		Labels:      i.Labels,
		Milestones:  i.Milestones,
	}

	if i.TargetID != NoTarget {
		tid := i.TargetID
		j.TargetID = &tid
	}
	if j.Labels == nil {
		j.Labels = []string{}
	}
	if j.Milestones == nil {
		j.Milestones = []string{}
	}

	return json.Marshal(j)
}
