package model

import (
	"encoding/json"
	"time"
)

// Comment is a staged comment on a source issue.
type Comment struct {
	ID         int
	IssueID    int
	Author     string
	AuthorLink string
	Body       string
	CreatedAt  time.Time
}

// AuthorOrUnknown returns the author name, falling back to "unknown user"
// when the field is empty.
func (c Comment) AuthorOrUnknown() string {
	if c.Author == "" {
		return "unknown user"
	}
	return c.Author
}

// commentJSON is the JSON wire format for Comment.
type commentJSON struct {
	ID         int    `json:"id"`
	IssueID    string `json:"issue_id"`
	Author     string `json:"author"`
	AuthorLink string `json:"author_link,omitempty"`
	Body       string `json:"body"`
	CreatedAt  string `json:"created_at"`
}

// MarshalJSON implements custom JSON serialization for Comment.
func (c Comment) MarshalJSON() ([]byte, error) {
	return json.Marshal(commentJSON{
		ID:         c.ID,
		IssueID:    FormatID(c.IssueID),
		Author:     c.AuthorOrUnknown(),
		AuthorLink: c.AuthorLink,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
	})
}
