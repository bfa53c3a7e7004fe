package source

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/normalize"
)

// ErrUnexpectedPage is returned when a page lacks an element the parser requires.
var ErrUnexpectedPage = errors.New("unexpected page structure")

// ErrProjectMismatch is returned when the staging store already holds a
// different project.
var ErrProjectMismatch = errors.New("staging store holds another project")

var totalItemsRE = regexp.MustCompile(`of (\d+) items`)

// ListedIssue is one row of a list page with the labels it contributes.
type ListedIssue struct {
	Issue  model.Issue
	Labels []string
}

// ListPage is a parsed list page. TotalItems is -1 when the pager text
// could not be read.
type ListPage struct {
	Rows       []ListedIssue
	TotalItems int
}

// TotalPages returns the number of pages of the given size, or -1 when the
// item count is unknown.
func (p *ListPage) TotalPages(pageSize int) int {
	if p.TotalItems < 0 || pageSize <= 0 {
		return -1
	}
	return (p.TotalItems + pageSize - 1) / pageSize
}

// ParseListPage extracts issue rows and the total item count. Relative
// title links are resolved against base.
func ParseListPage(doc *goquery.Document, base *url.URL) (*ListPage, error) {
	page := &ListPage{TotalItems: -1}

	pager := doc.Find("ul.advanced_pagination li").First().Text()
	if m := totalItemsRE.FindStringSubmatch(pager); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			page.TotalItems = n
		}
	}

	var parseErr error
	doc.Find(`tr[id^="row_checkbox_"]`).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		listed, err := parseListRow(row, base)
		if err != nil {
			parseErr = err
			return false
		}
		page.Rows = append(page.Rows, *listed)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return page, nil
}

func parseListRow(row *goquery.Selection, base *url.URL) (*ListedIssue, error) {
	rowID, _ := row.Attr("id")

	idText := strings.TrimSpace(row.Find("td.ID").First().Text())
	id, err := strconv.Atoi(idText)
	if err != nil {
		return nil, fmt.Errorf("%w: row %s has issue id %q", ErrUnexpectedPage, rowID, idText)
	}

	title := row.Find(`a[id^="TitleLink"]`).First()
	if title.Length() == 0 {
		return nil, fmt.Errorf("%w: row %s has no title link", ErrUnexpectedPage, rowID)
	}
	href, _ := title.Attr("href")

	severity := normalize.Severity(row.Find("td.Severity").First().Text())
	issueType := normalize.IssueType(row.Find("td.Type").First().Text())

	issue := model.Issue{
		ID:         id,
		Link:       resolve(base, href),
		Title:      strings.TrimSpace(title.Text()),
		Assignee:   strings.TrimSpace(row.Find("td.AssignedTo").First().Text()),
		Status:     model.Status(strings.TrimSpace(row.Find("td.Status").First().Text())),
		Severity:   severity,
		LastUpdate: ticks(row.Find("span.smartDate").First()),
		TargetID:   model.NoTarget,
	}

	labels := []string{string(severity)}
	if issueType != "" {
		labels = append(labels, issueType)
	}

	return &ListedIssue{Issue: issue, Labels: labels}, nil
}

// ticks reads the localtimeticks attribute of a smartDate span as Unix
// seconds. A missing or malformed value yields the Unix epoch.
func ticks(s *goquery.Selection) time.Time {
	v, _ := s.Attr("localtimeticks")
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// resolve makes href absolute against base. Unparseable references are kept as is.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
