package source

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

func mustBase(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func parseString(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestParseListPage(t *testing.T) {
	base := mustBase(t, "http://demo.example.com/")

	page, err := ParseListPage(loadFixture(t, "list_page0.html"), base)
	require.NoError(t, err)

	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages(2))
	assert.Equal(t, 1, page.TotalPages(100))
	require.Len(t, page.Rows, 2)

	first := page.Rows[0]
	assert.Equal(t, 1, first.Issue.ID)
	assert.Equal(t, "http://demo.example.com/workitem/1", first.Issue.Link)
	assert.Equal(t, "Crash on save", first.Issue.Title)
	assert.Equal(t, "alice", first.Issue.Assignee)
	assert.Equal(t, model.StatusActive, first.Issue.Status)
	assert.Equal(t, model.SeverityLow, first.Issue.Severity)
	assert.Equal(t, time.Unix(1367402400, 0).UTC(), first.Issue.LastUpdate)
	assert.Equal(t, model.NoTarget, first.Issue.TargetID)
	assert.Equal(t, []string{"low", "bug"}, first.Labels)

	second := page.Rows[1]
	assert.Equal(t, 2, second.Issue.ID)
	assert.Empty(t, second.Issue.Assignee)
	assert.Equal(t, model.SeverityMedium, second.Issue.Severity)
	assert.Equal(t, []string{"medium", "enhancement"}, second.Labels)
}

func TestParseListPageUnknownTotal(t *testing.T) {
	doc := parseString(t, `<html><body><table><tbody>
<tr id="row_checkbox_7"><td class="ID">7</td><td><a id="TitleLink7" href="/workitem/7">Seven</a></td></tr>
</tbody></table></body></html>`)

	page, err := ParseListPage(doc, mustBase(t, "http://demo.example.com/"))
	require.NoError(t, err)

	assert.Equal(t, -1, page.TotalItems)
	assert.Equal(t, -1, page.TotalPages(100))
	require.Len(t, page.Rows, 1)
	assert.Equal(t, time.Unix(0, 0).UTC(), page.Rows[0].Issue.LastUpdate)
}

func TestParseListPageRejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"missing id", `<tr id="row_checkbox_1"><td class="ID"></td><td><a id="TitleLink1" href="/workitem/1">x</a></td></tr>`},
		{"non-numeric id", `<tr id="row_checkbox_1"><td class="ID">one</td><td><a id="TitleLink1" href="/workitem/1">x</a></td></tr>`},
		{"missing title link", `<tr id="row_checkbox_1"><td class="ID">1</td><td>x</td></tr>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseString(t, "<html><body><table><tbody>"+tt.row+"</tbody></table></body></html>")
			_, err := ParseListPage(doc, nil)
			assert.ErrorIs(t, err, ErrUnexpectedPage)
		})
	}
}

func TestParseListPageEmpty(t *testing.T) {
	doc := parseString(t, `<html><body><ul class="advanced_pagination"><li>Showing 0 - 0 of 0 items</li></ul></body></html>`)

	page, err := ParseListPage(doc, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Equal(t, 0, page.TotalItems)
	assert.Equal(t, 0, page.TotalPages(100))
}
