package target

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"

	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/retry"
)

const perPage = 100

// Options selects the repository issues are imported into.
type Options struct {
	// Repo is the repository name, or owner/name.
	Repo string
	// Owner is the user owning Repo. Empty means the authenticated user.
	Owner string
	// Org owns Repo when set and takes precedence over Owner.
	Org     string
	Token   string
	BaseURL string // API root override for GitHub Enterprise
}

// GitHub implements Target over the GitHub REST API.
type GitHub struct {
	client *github.Client
	retry  *retry.Controller
	logger *logrus.Logger
	owner  string
	repo   string
}

// NewGitHub creates a GitHub target. A nil httpClient uses the default client.
func NewGitHub(opts Options, httpClient *http.Client, ctrl *retry.Controller, logger *logrus.Logger) (*GitHub, error) {
	owner, repo := opts.Owner, opts.Repo
	if o, r, ok := strings.Cut(repo, "/"); ok {
		owner, repo = o, r
	}
	if opts.Org != "" {
		owner = opts.Org
	}
	if repo == "" {
		return nil, fmt.Errorf("target repository is required")
	}

	client := github.NewClient(httpClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing target base url: %w", err)
		}
		client.BaseURL = base
	}

	return &GitHub{
		client: client,
		retry:  ctrl,
		logger: logger,
		owner:  owner,
		repo:   repo,
	}, nil
}

// Repository returns owner/name. The owner is empty until Authenticate has
// run when it defaults to the authenticated user.
func (g *GitHub) Repository() string {
	return g.owner + "/" + g.repo
}

func (g *GitHub) Authenticate(ctx context.Context) (string, error) {
	var login string
	err := g.do(ctx, "get authenticated user", func(ctx context.Context) error {
		user, _, err := g.client.Users.Get(ctx, "")
		if err != nil {
			return err
		}
		login = user.GetLogin()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("authenticating: %w", err)
	}

	if g.owner == "" {
		g.owner = login
	}

	err = g.do(ctx, "get repository", func(ctx context.Context) error {
		_, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("unable to access %s as %s: %w", g.Repository(), login, err)
	}

	g.logger.WithFields(logrus.Fields{
		"login": login,
		"repo":  g.Repository(),
	}).Info("authenticated")
	return login, nil
}

func (g *GitHub) RateRemaining(ctx context.Context) (int, error) {
	remaining := -1
	err := g.do(ctx, "get rate limit", func(ctx context.Context) error {
		limits, _, err := g.client.RateLimits(ctx)
		if err != nil {
			return err
		}
		if limits.Core != nil {
			remaining = limits.Core.Remaining
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reading rate limit: %w", err)
	}
	return remaining, nil
}

func (g *GitHub) ListLabels(ctx context.Context) ([]model.Label, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var labels []model.Label
	for {
		var (
			page []*github.Label
			resp *github.Response
		)
		err := g.do(ctx, "list labels", func(ctx context.Context) error {
			var err error
			page, resp, err = g.client.Issues.ListLabels(ctx, g.owner, g.repo, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("listing labels: %w", err)
		}

		for _, l := range page {
			labels = append(labels, model.Label{Name: l.GetName(), Color: l.GetColor()})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return labels, nil
}

func (g *GitHub) CreateLabel(ctx context.Context, name, color string) (*model.Label, error) {
	var created *github.Label
	err := g.do(ctx, "create label", func(ctx context.Context) error {
		var err error
		created, _, err = g.client.Issues.CreateLabel(ctx, g.owner, g.repo, &github.Label{
			Name:  github.String(name),
			Color: github.String(color),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating label %q: %w", name, err)
	}
	return &model.Label{Name: created.GetName(), Color: created.GetColor()}, nil
}

func (g *GitHub) ListMilestones(ctx context.Context, state string) ([]Milestone, error) {
	opts := &github.MilestoneListOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var milestones []Milestone
	for {
		var (
			page []*github.Milestone
			resp *github.Response
		)
		err := g.do(ctx, "list milestones", func(ctx context.Context) error {
			var err error
			page, resp, err = g.client.Issues.ListMilestones(ctx, g.owner, g.repo, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("listing %s milestones: %w", state, err)
		}

		for _, m := range page {
			milestones = append(milestones, Milestone{
				Number: m.GetNumber(),
				Title:  m.GetTitle(),
				State:  m.GetState(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return milestones, nil
}

func (g *GitHub) CreateMilestone(ctx context.Context, title string) (*Milestone, error) {
	var created *github.Milestone
	err := g.do(ctx, "create milestone", func(ctx context.Context) error {
		var err error
		created, _, err = g.client.Issues.CreateMilestone(ctx, g.owner, g.repo, &github.Milestone{
			Title: github.String(title),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating milestone %q: %w", title, err)
	}
	return &Milestone{
		Number: created.GetNumber(),
		Title:  created.GetTitle(),
		State:  created.GetState(),
	}, nil
}

func (g *GitHub) ListCollaborators(ctx context.Context) ([]string, error) {
	opts := &github.ListCollaboratorsOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	var logins []string
	for {
		var (
			page []*github.User
			resp *github.Response
		)
		err := g.do(ctx, "list collaborators", func(ctx context.Context) error {
			var err error
			page, resp, err = g.client.Repositories.ListCollaborators(ctx, g.owner, g.repo, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("listing collaborators: %w", err)
		}

		for _, u := range page {
			logins = append(logins, u.GetLogin())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return logins, nil
}

func (g *GitHub) ResolveUser(ctx context.Context, login string) (string, bool, error) {
	var (
		canonical string
		found     bool
	)
	err := g.do(ctx, "get user", func(ctx context.Context) error {
		user, _, err := g.client.Users.Get(ctx, login)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		canonical, found = user.GetLogin(), true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("resolving user %q: %w", login, err)
	}
	return canonical, found, nil
}

func (g *GitHub) CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error) {
	body := &github.IssueRequest{
		Title: github.String(req.Title),
		Body:  github.String(req.Body),
	}
	if req.Assignee != "" {
		body.Assignee = github.String(req.Assignee)
	}

	var created *github.Issue
	err := g.do(ctx, "create issue", func(ctx context.Context) error {
		var err error
		created, _, err = g.client.Issues.Create(ctx, g.owner, g.repo, body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating issue %q: %w", req.Title, err)
	}
	return &Issue{
		ID:     created.GetID(),
		Number: created.GetNumber(),
		URL:    created.GetHTMLURL(),
	}, nil
}

func (g *GitHub) EditIssue(ctx context.Context, number int, edit IssueEdit) error {
	body := &github.IssueRequest{Milestone: edit.Milestone}
	if len(edit.Labels) > 0 {
		labels := append([]string(nil), edit.Labels...)
		body.Labels = &labels
	}
	if edit.State != "" {
		body.State = github.String(edit.State)
	}

	err := g.do(ctx, "edit issue", func(ctx context.Context) error {
		_, _, err := g.client.Issues.Edit(ctx, g.owner, g.repo, number, body)
		return err
	})
	if err != nil {
		return fmt.Errorf("editing issue #%d: %w", number, err)
	}
	return nil
}

func (g *GitHub) CreateComment(ctx context.Context, number int, body string) error {
	err := g.do(ctx, "create comment", func(ctx context.Context) error {
		_, _, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, number, &github.IssueComment{
			Body: github.String(body),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("commenting on issue #%d: %w", number, err)
	}
	return nil
}

func (g *GitHub) CreateGist(ctx context.Context, description string, files map[string]string, public bool) (*Gist, error) {
	gist := &github.Gist{
		Description: github.String(description),
		Public:      github.Bool(public),
		Files:       make(map[github.GistFilename]github.GistFile, len(files)),
	}
	for name, content := range files {
		gist.Files[github.GistFilename(name)] = github.GistFile{Content: github.String(content)}
	}

	var created *github.Gist
	err := g.do(ctx, "create gist", func(ctx context.Context) error {
		var err error
		created, _, err = g.client.Gists.Create(ctx, gist)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating gist: %w", err)
	}
	return &Gist{Description: created.GetDescription(), URL: created.GetHTMLURL()}, nil
}

// do runs one API call through the retry controller after classifying its
// failure.
func (g *GitHub) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return g.retry.Do(ctx, op, func(ctx context.Context) error {
		return classify(fn(ctx))
	})
}

// classify maps GitHub errors onto retry semantics: an exhausted quota is
// final, secondary rate limits and server errors are transient.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return retry.Permanent(fmt.Errorf("%w: %w", ErrRateLimited, err))
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return retry.Transient(err)
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode >= 500 {
		return retry.Transient(err)
	}
	return err
}

func isNotFound(err error) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound
}
