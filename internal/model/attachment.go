package model

import (
	"path"
	"strings"
)

// Attachment is a file linked from a source issue. Name is the link text,
// which doubles as the file name when the attachment is rehomed.
type Attachment struct {
	ID      int    `json:"id"`
	IssueID int    `json:"-"`
	Name    string `json:"name"`
	URL     string `json:"url"`
}

// Ext returns the lowercase file extension of the attachment name,
// including the leading dot, or "" when it has none.
func (a Attachment) Ext() string {
	return strings.ToLower(path.Ext(a.Name))
}
