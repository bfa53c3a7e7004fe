package model

// IssueDetail is everything a detail refresh produces for one issue. It is
// written to staging as a single unit.
type IssueDetail struct {
	IssueID     int
	Reporter    string
	Description string
	Labels      []string
	Milestones  []string
	Comments    []Comment
	Attachments []Attachment
	Metadata    MetadataList
}
