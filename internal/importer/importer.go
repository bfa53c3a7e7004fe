package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/retry"
	"github.com/ALT-F4-LLC/ferry/internal/target"
)

// ErrRateLimitExhausted aborts a run when the target quota is spent.
var ErrRateLimitExhausted = errors.New("target rate limit exhausted")

const (
	DefaultRateLimitWarn = 100
	DefaultBodyLimit     = 60 * 1024
	DefaultCommentPause  = 2 * time.Second
)

// BasePalette is created on the target before the first issue is imported.
var BasePalette = []model.Label{
	{Name: "low", Color: "5BB13D"},
	{Name: "medium", Color: "E36B23"},
	{Name: "high", Color: "E10C02"},
	{Name: "task", Color: "4183C4"},
}

// Options configures an import run.
type Options struct {
	SkipClosed    bool
	MaxCount      int // imports per run; 0 or less is unlimited
	RateLimitWarn int
	BodyLimit     int
	CommentPause  time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		RateLimitWarn: DefaultRateLimitWarn,
		BodyLimit:     DefaultBodyLimit,
		CommentPause:  DefaultCommentPause,
	}
}

// Downloader fetches attachment content.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// Result summarizes an import run.
type Result struct {
	Imported  int `json:"imported"`
	Skipped   int `json:"skipped"`
	Remaining int `json:"remaining"`
}

// Importer replays staged issues against a target in ascending id order.
// Each issue is marked done only after every call for it has succeeded.
type Importer struct {
	conn   *sql.DB
	target target.Target
	files  Downloader
	retry  *retry.Controller
	logger *logrus.Logger
	opts   Options
	pacer  *rate.Limiter

	prepared      bool
	labels        map[string]bool
	milestones    map[string]int
	collaborators map[string]bool
	users         map[string]string
}

// New creates an Importer. Zero option values fall back to the defaults.
func New(conn *sql.DB, tgt target.Target, files Downloader, ctrl *retry.Controller, logger *logrus.Logger, opts Options) *Importer {
	defaults := DefaultOptions()
	if opts.RateLimitWarn <= 0 {
		opts.RateLimitWarn = defaults.RateLimitWarn
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = defaults.BodyLimit
	}

	limit := rate.Inf
	if opts.CommentPause > 0 {
		limit = rate.Every(opts.CommentPause)
	}

	return &Importer{
		conn:          conn,
		target:        tgt,
		files:         files,
		retry:         ctrl,
		logger:        logger,
		opts:          opts,
		pacer:         rate.NewLimiter(limit, 1),
		labels:        make(map[string]bool),
		milestones:    make(map[string]int),
		collaborators: make(map[string]bool),
		users:         make(map[string]string),
	}
}

// Prepare authenticates, seeds the base label palette and loads the
// existing labels, milestones and collaborators. Run calls it once.
func (im *Importer) Prepare(ctx context.Context) error {
	if im.prepared {
		return nil
	}

	if _, err := im.target.Authenticate(ctx); err != nil {
		return err
	}

	labels, err := im.target.ListLabels(ctx)
	if err != nil {
		return err
	}
	for _, l := range labels {
		im.labels[l.Name] = true
	}
	for _, l := range BasePalette {
		if im.labels[l.Name] {
			continue
		}
		if _, err := im.target.CreateLabel(ctx, l.Name, l.Color); err != nil {
			return err
		}
		im.labels[l.Name] = true
	}

	logins, err := im.target.ListCollaborators(ctx)
	if err != nil {
		return err
	}
	for _, login := range logins {
		im.collaborators[strings.ToLower(login)] = true
	}

	for _, state := range []string{"open", "closed"} {
		milestones, err := im.target.ListMilestones(ctx, state)
		if err != nil {
			return err
		}
		for _, m := range milestones {
			im.milestones[m.Title] = m.Number
		}
	}

	im.logger.WithFields(logrus.Fields{
		"labels":        len(im.labels),
		"milestones":    len(im.milestones),
		"collaborators": len(im.collaborators),
	}).Debug("loaded target state")

	im.prepared = true
	return nil
}

// Run imports every pending staged issue. Issues whose detail is missing or
// stale are left for the next scrape and counted as remaining. It stops
// early after MaxCount imports, on an exhausted quota, or on the first
// failing issue; issues already imported stay done.
func (im *Importer) Run(ctx context.Context) (*Result, error) {
	if err := im.Prepare(ctx); err != nil {
		return nil, im.wrapRateLimit(fmt.Errorf("preparing target: %w", err))
	}

	issues, err := db.ListPendingIssues(im.conn, 0)
	if err != nil {
		return nil, err
	}
	waiting, err := db.CountAwaitingDetail(im.conn)
	if err != nil {
		return nil, err
	}
	if waiting > 0 {
		im.logger.WithField("issues", waiting).Warn("skipping issues whose detail is not staged, run ferry scrape to fetch it")
	}

	res := &Result{}
	defer func() { res.Remaining = len(issues) - res.Imported - res.Skipped + waiting }()

	for i, issue := range issues {
		if im.opts.MaxCount > 0 && res.Imported >= im.opts.MaxCount {
			break
		}
		if issue.Done || (im.opts.SkipClosed && issue.Status.IsClosed()) {
			res.Skipped++
			continue
		}
		if err := im.retry.CheckInterrupt(ctx); err != nil {
			return res, err
		}

		im.logger.WithFields(logrus.Fields{
			"issue":    issue.ID,
			"progress": fmt.Sprintf("%.2f%%", float64(i)/float64(len(issues))*100),
		}).Info("importing issue")

		number, err := im.importIssue(ctx, issue)
		if err != nil {
			return res, im.wrapRateLimit(fmt.Errorf("importing issue %d: %w", issue.ID, err))
		}
		if err := db.MarkImported(im.conn, issue.ID, number); err != nil {
			return res, err
		}
		res.Imported++
	}

	return res, nil
}

func (im *Importer) importIssue(ctx context.Context, issue *model.Issue) (int, error) {
	log := im.logger.WithField("issue", issue.ID)

	remaining, err := im.checkQuota(ctx)
	if err != nil {
		return 0, err
	}
	if remaining >= 0 && remaining <= im.opts.RateLimitWarn {
		log.WithField("remaining", remaining).Warn("target rate limit approaching")
	}

	detail, err := db.GetIssueDetail(im.conn, issue.ID)
	if err != nil {
		return 0, err
	}

	assignee, err := im.resolveAssignee(ctx, issue.Assignee)
	if err != nil {
		return 0, err
	}
	if issue.Assignee != "" && assignee == "" {
		log.WithField("assignee", issue.Assignee).Debug("importing unassigned")
	}

	plain, binary := PartitionAttachments(detail.Attachments)
	gist, err := im.bundlePlainText(ctx, issue.ID, plain)
	if err != nil {
		return 0, err
	}
	body := AppendAttachments(detail.Description, gist, binary)
	chunks := SplitBody(body, im.opts.BodyLimit)

	if _, err := im.checkQuota(ctx); err != nil {
		return 0, err
	}
	created, err := im.target.CreateIssue(ctx, target.IssueRequest{
		Title:    issue.Title,
		Body:     chunks[0],
		Assignee: assignee,
	})
	if err != nil {
		return 0, err
	}
	log = log.WithField("number", created.Number)
	log.Debug("created target issue")

	for _, chunk := range chunks[1:] {
		if err := im.comment(ctx, created.Number, chunk); err != nil {
			return 0, fmt.Errorf("posting continuation: %w", err)
		}
	}

	for _, c := range detail.Comments {
		if err := im.pacer.Wait(ctx); err != nil {
			return 0, err
		}
		if err := im.comment(ctx, created.Number, FormatComment(c)); err != nil {
			return 0, fmt.Errorf("replaying comment: %w", err)
		}
	}

	edit := target.IssueEdit{}
	if len(detail.Milestones) > 0 {
		number, err := im.milestone(ctx, detail.Milestones[0])
		if err != nil {
			return 0, err
		}
		edit.Milestone = &number
	}
	for _, name := range detail.Labels {
		if name == "" {
			continue
		}
		if err := im.label(ctx, name); err != nil {
			return 0, err
		}
		edit.Labels = append(edit.Labels, name)
	}
	if issue.Status.IsClosed() {
		edit.State = "closed"
	}

	if edit.Milestone != nil || len(edit.Labels) > 0 || edit.State != "" {
		if _, err := im.checkQuota(ctx); err != nil {
			return 0, err
		}
		if err := im.target.EditIssue(ctx, created.Number, edit); err != nil {
			return 0, err
		}
	}

	log.WithFields(logrus.Fields{
		"comments":    len(detail.Comments),
		"chunks":      len(chunks),
		"attachments": len(detail.Attachments),
	}).Info("imported issue")
	return created.Number, nil
}

// checkQuota returns the remaining target quota, failing when it is spent.
// A negative count means the target did not report one.
func (im *Importer) checkQuota(ctx context.Context) (int, error) {
	remaining, err := im.target.RateRemaining(ctx)
	if err != nil {
		return 0, err
	}
	if remaining == 0 {
		return 0, ErrRateLimitExhausted
	}
	return remaining, nil
}

// resolveAssignee maps a source user to a target collaborator. Unmapped
// users, unknown logins and non-collaborators resolve to "".
func (im *Importer) resolveAssignee(ctx context.Context, sourceUser string) (string, error) {
	if sourceUser == "" {
		return "", nil
	}

	mapped, err := db.GetUserMapping(im.conn, sourceUser)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	login, ok := im.users[mapped]
	if !ok {
		if _, err := im.checkQuota(ctx); err != nil {
			return "", err
		}
		canonical, found, err := im.target.ResolveUser(ctx, mapped)
		if err != nil {
			return "", err
		}
		if found {
			login = canonical
		}
		im.users[mapped] = login
	}

	if login == "" || !im.collaborators[strings.ToLower(login)] {
		return "", nil
	}
	return login, nil
}

// bundlePlainText downloads plain-text attachments into one gist, one file
// per attachment. It returns nil when there is nothing to bundle.
func (im *Importer) bundlePlainText(ctx context.Context, sourceID int, plain []model.Attachment) (*target.Gist, error) {
	if len(plain) == 0 {
		return nil, nil
	}

	files := make(map[string]string, len(plain))
	for _, a := range plain {
		body, contentType, err := im.files.Download(ctx, a.URL)
		if err != nil {
			return nil, fmt.Errorf("downloading attachment %q: %w", a.Name, err)
		}
		addGistFile(files, a.Name, DecodeText(body, contentType))
	}

	if _, err := im.checkQuota(ctx); err != nil {
		return nil, err
	}
	return im.target.CreateGist(ctx, GistDescription(sourceID), files, true)
}

func (im *Importer) comment(ctx context.Context, number int, body string) error {
	if _, err := im.checkQuota(ctx); err != nil {
		return err
	}
	return im.target.CreateComment(ctx, number, body)
}

// milestone returns the number of the milestone with exactly this title,
// creating it when neither an open nor a closed one exists.
func (im *Importer) milestone(ctx context.Context, title string) (int, error) {
	if number, ok := im.milestones[title]; ok {
		return number, nil
	}
	if _, err := im.checkQuota(ctx); err != nil {
		return 0, err
	}
	created, err := im.target.CreateMilestone(ctx, title)
	if err != nil {
		return 0, err
	}
	im.milestones[created.Title] = created.Number
	im.milestones[title] = created.Number
	return created.Number, nil
}

// label makes sure a label with exactly this name exists on the target.
func (im *Importer) label(ctx context.Context, name string) error {
	if im.labels[name] {
		return nil
	}
	if _, err := im.checkQuota(ctx); err != nil {
		return err
	}
	created, err := im.target.CreateLabel(ctx, name, model.DefaultLabelColor)
	if err != nil {
		return err
	}
	im.labels[created.Name] = true
	im.labels[name] = true
	return nil
}

func (im *Importer) wrapRateLimit(err error) error {
	if errors.Is(err, target.ErrRateLimited) && !errors.Is(err, ErrRateLimitExhausted) {
		return fmt.Errorf("%w: %w", ErrRateLimitExhausted, err)
	}
	return err
}
