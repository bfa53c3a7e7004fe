package target

import (
	"context"
	"errors"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// ErrRateLimited is returned when the target refuses a call because the
// API quota is spent.
var ErrRateLimited = errors.New("target rate limit exceeded")

// Issue is an issue created on the target.
type Issue struct {
	ID     int64
	Number int
	URL    string
}

// IssueRequest describes a new issue. An empty Assignee creates it unassigned.
type IssueRequest struct {
	Title    string
	Body     string
	Assignee string
}

// IssueEdit changes an existing issue. Nil or empty fields are left alone.
type IssueEdit struct {
	Milestone *int
	Labels    []string
	State     string
}

// Milestone is a target milestone.
type Milestone struct {
	Number int
	Title  string
	State  string
}

// Gist is a multi-file paste.
type Gist struct {
	Description string
	URL         string
}

// Target is the issue tracker issues are imported into. Implementations
// are used from a single goroutine.
type Target interface {
	// Authenticate verifies the credentials and repository access and
	// returns the authenticated login.
	Authenticate(ctx context.Context) (string, error)
	// RateRemaining returns the number of API calls left in the current window.
	RateRemaining(ctx context.Context) (int, error)

	ListLabels(ctx context.Context) ([]model.Label, error)
	CreateLabel(ctx context.Context, name, color string) (*model.Label, error)
	// ListMilestones lists milestones in the given state: open, closed or all.
	ListMilestones(ctx context.Context, state string) ([]Milestone, error)
	CreateMilestone(ctx context.Context, title string) (*Milestone, error)
	ListCollaborators(ctx context.Context) ([]string, error)
	// ResolveUser returns the canonical login of a user and whether it exists.
	ResolveUser(ctx context.Context, login string) (string, bool, error)

	CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error)
	EditIssue(ctx context.Context, number int, edit IssueEdit) error
	CreateComment(ctx context.Context, number int, body string) error
	CreateGist(ctx context.Context, description string, files map[string]string, public bool) (*Gist, error)
}
