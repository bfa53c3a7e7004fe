package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/normalize"
	"github.com/ALT-F4-LLC/ferry/internal/retry"
)

// DefaultBaseURL is the project URL template; %s is replaced by the project name.
const DefaultBaseURL = "http://%s.codeplex.com"

// DefaultPageSize is the number of rows requested per list page.
const DefaultPageSize = 100

// Options configures a Reader.
type Options struct {
	Project  string
	BaseURL  string // template or literal project URL
	PageSize int
}

// ProjectURL expands a base URL template for a project. A template without
// %s is used as is.
func ProjectURL(template, project string) string {
	if template == "" {
		template = DefaultBaseURL
	}
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, project)
	}
	return template
}

// ListStats summarizes a list phase.
type ListStats struct {
	Pages      int `json:"pages"`
	Rows       int `json:"rows"`
	Flagged    int `json:"flagged"`
	TotalItems int `json:"total_items"`
}

// DetailStats summarizes a detail phase.
type DetailStats struct {
	Refreshed int `json:"refreshed"`
}

// Reader stages a source project: the list phase upserts every row page by
// page, and the detail phase refreshes each flagged issue. Both phases
// resume where an interrupted run stopped.
type Reader struct {
	conn     *sql.DB
	client   *Client
	retry    *retry.Controller
	logger   *logrus.Logger
	project  string
	base     *url.URL
	pageSize int
}

// NewReader creates a Reader for one project.
func NewReader(conn *sql.DB, client *Client, ctrl *retry.Controller, logger *logrus.Logger, opts Options) (*Reader, error) {
	if opts.Project == "" {
		return nil, fmt.Errorf("source project is required")
	}
	base, err := url.Parse(strings.TrimRight(ProjectURL(opts.BaseURL, opts.Project), "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing project url: %w", err)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}

	return &Reader{
		conn:     conn,
		client:   client,
		retry:    ctrl,
		logger:   logger,
		project:  opts.Project,
		base:     base,
		pageSize: opts.PageSize,
	}, nil
}

// ListURL returns the URL of a list page with every filter set to All and
// rows sorted by ascending id.
func (r *Reader) ListURL(page int) string {
	q := url.Values{}
	q.Set("keyword", "")
	q.Set("status", "All")
	q.Set("type", "All")
	q.Set("priority", "All")
	q.Set("release", "All")
	q.Set("assignedTo", "All")
	q.Set("component", "All")
	q.Set("sortField", "Id")
	q.Set("sortDirection", "Ascending")
	q.Set("size", strconv.Itoa(r.pageSize))
	q.Set("page", strconv.Itoa(page))

	u := r.base.ResolveReference(&url.URL{Path: "workitem/list/advanced"})
	u.RawQuery = q.Encode()
	return u.String()
}

// Run runs the list phase, then the detail phase.
func (r *Reader) Run(ctx context.Context) (*ListStats, *DetailStats, error) {
	ls, err := r.ScrapeList(ctx)
	if err != nil {
		return ls, nil, err
	}
	ds, err := r.ScrapeDetails(ctx)
	return ls, ds, err
}

// ScrapeList walks list pages in ascending order starting at the page
// recorded by an interrupted run. When the total item count is unknown it
// stops at the first page without rows.
func (r *Reader) ScrapeList(ctx context.Context) (*ListStats, error) {
	if err := r.claimProject(); err != nil {
		return nil, err
	}

	start, err := r.resumePage()
	if err != nil {
		return nil, err
	}
	if start > 0 {
		r.logger.WithField("page", start).Info("resuming list scrape")
	}

	stats := &ListStats{TotalItems: -1}
	totalPages := -1
	for page := start; ; page++ {
		if err := r.retry.CheckInterrupt(ctx); err != nil {
			return stats, err
		}

		doc, err := r.client.Fetch(ctx, r.ListURL(page))
		if err != nil {
			return stats, fmt.Errorf("fetching list page %d: %w", page, err)
		}
		lp, err := ParseListPage(doc, r.base)
		if err != nil {
			return stats, fmt.Errorf("parsing list page %d: %w", page, err)
		}

		if page == start {
			totalPages = lp.TotalPages(r.pageSize)
			stats.TotalItems = lp.TotalItems
			if totalPages < 0 {
				r.logger.Warn("could not parse the item count, scraping until an empty page")
			} else {
				r.logger.WithFields(logrus.Fields{
					"items": lp.TotalItems,
					"pages": totalPages,
				}).Info("scraping list")
			}
		}

		if len(lp.Rows) == 0 {
			break
		}

		for _, row := range lp.Rows {
			issue := row.Issue
			flagged, err := db.UpsertListedIssue(r.conn, &issue, row.Labels)
			if err != nil {
				return stats, fmt.Errorf("staging issue %d: %w", issue.ID, err)
			}
			stats.Rows++
			if flagged {
				stats.Flagged++
			}
		}
		stats.Pages++

		if err := db.SetMeta(r.conn, db.MetaListNextPage, strconv.Itoa(page+1)); err != nil {
			return stats, err
		}
		r.logger.WithFields(logrus.Fields{
			"page": page,
			"rows": len(lp.Rows),
		}).Info("staged list page")

		if totalPages >= 0 && page+1 >= totalPages {
			break
		}
	}

	if err := db.DeleteMeta(r.conn, db.MetaListNextPage); err != nil {
		return stats, err
	}
	return stats, nil
}

// ScrapeDetails refreshes every issue that needs it, one transaction per issue.
func (r *Reader) ScrapeDetails(ctx context.Context) (*DetailStats, error) {
	issues, err := db.ListIssuesNeedingDetail(r.conn)
	if err != nil {
		return nil, err
	}

	stats := &DetailStats{}
	for i, issue := range issues {
		if err := r.retry.CheckInterrupt(ctx); err != nil {
			return stats, err
		}

		log := r.logger.WithFields(logrus.Fields{
			"issue":    issue.ID,
			"progress": fmt.Sprintf("%d/%d", i+1, len(issues)),
		})
		log.Info("scraping issue detail")

		doc, err := r.client.Fetch(ctx, issue.Link)
		if err != nil {
			return stats, fmt.Errorf("fetching issue %d: %w", issue.ID, err)
		}
		raw, err := ParseDetailPage(doc, r.base)
		if err != nil {
			return stats, fmt.Errorf("parsing issue %d: %w", issue.ID, err)
		}

		detail, err := BuildDetail(issue, raw)
		if err != nil {
			return stats, fmt.Errorf("normalizing issue %d: %w", issue.ID, err)
		}
		if detail.Reporter == "" && raw.UpdatedBy != "" {
			log.WithField("updated_by", raw.UpdatedBy).Debug("no reporter on page, last updater known")
		}

		if err := db.SaveIssueDetail(r.conn, detail); err != nil {
			return stats, fmt.Errorf("staging issue %d detail: %w", issue.ID, err)
		}
		stats.Refreshed++
	}

	return stats, nil
}

// BuildDetail normalizes a parsed detail page into what gets staged for the
// issue: component label, release milestone, reporter, comments,
// attachments, metadata and the final description with its footer.
func BuildDetail(issue *model.Issue, raw *Detail) (*model.IssueDetail, error) {
	d := &model.IssueDetail{
		IssueID:     issue.ID,
		Reporter:    raw.ReportedBy,
		Comments:    raw.Comments,
		Attachments: raw.Attachments,
	}

	if label := normalize.Component(raw.Component); label != "" {
		d.Labels = append(d.Labels, label)
	}
	if milestone := normalize.Release(raw.Release); milestone != "" {
		d.Milestones = append(d.Milestones, milestone)
	}

	for _, row := range raw.SideRows {
		for _, m := range normalize.SideTable(row.Names, row.Values) {
			d.Metadata.Set(m.Name, m.Value)
		}
	}

	tags, err := normalize.ExtractHTMLTags(raw.DescriptionHTML)
	if err != nil {
		return nil, err
	}
	if tags.Reporter != "" {
		d.Reporter = tags.Reporter
	}
	for _, m := range tags.Metadata {
		d.Metadata.Set(m.Name, m.Value)
	}

	body, err := normalize.Markdown(tags.Body)
	if err != nil {
		return nil, err
	}
	d.Description = normalize.BuildDescription(body, issue.ID, issue.Link, d.Metadata)
	return d, nil
}

// claimProject records which project the staging store belongs to and
// refuses to mix two projects in one store.
func (r *Reader) claimProject() error {
	staged, err := db.GetMeta(r.conn, db.MetaProject)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return db.SetMeta(r.conn, db.MetaProject, r.project)
	case err != nil:
		return err
	case staged != r.project:
		return fmt.Errorf("%w: found %q, not %q", ErrProjectMismatch, staged, r.project)
	}
	return nil
}

func (r *Reader) resumePage() (int, error) {
	v, err := db.GetMeta(r.conn, db.MetaListNextPage)
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	page, err := strconv.Atoi(v)
	if err != nil || page < 0 {
		return 0, nil
	}
	return page, nil
}
