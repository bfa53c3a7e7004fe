package source

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/retry"
)

// fakeSite serves the testdata fixtures as a small project and records
// which pages were requested.
type fakeSite struct {
	mu       sync.Mutex
	requests []string
	pages    map[string]string // list page number -> fixture
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var fixture string
	switch {
	case r.URL.Path == "/workitem/list/advanced":
		page := r.URL.Query().Get("page")
		s.record("list/" + page)
		fixture = s.pages[page]
	case strings.HasPrefix(r.URL.Path, "/workitem/"):
		id := strings.TrimPrefix(r.URL.Path, "/workitem/")
		s.record("detail/" + id)
		fixture = "detail_" + id + ".html"
	}

	if fixture == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><table><tbody></tbody></table></body></html>"))
		return
	}
	body, err := os.ReadFile(filepath.Join("testdata", fixture))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

func (s *fakeSite) record(req string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
}

func (s *fakeSite) taken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.requests
	s.requests = nil
	return out
}

func newFakeSite(t *testing.T) (*fakeSite, *httptest.Server) {
	t.Helper()
	site := &fakeSite{pages: map[string]string{
		"0": "list_page0.html",
		"1": "list_page1.html",
	}}
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)
	return site, srv
}

func mustStore(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Initialize(conn))
	return conn
}

func newTestReader(t *testing.T, conn *sql.DB, baseURL, project string) *Reader {
	t.Helper()
	ctrl := retry.New(retry.Policy{Interval: time.Millisecond, MaxAttempts: 3}, nil)
	logger := quietLogger()
	r, err := NewReader(conn, NewClient(nil, ctrl, logger), ctrl, logger, Options{
		Project:  project,
		BaseURL:  baseURL,
		PageSize: 2,
	})
	require.NoError(t, err)
	return r
}

func TestProjectURL(t *testing.T) {
	assert.Equal(t, "http://demo.codeplex.com", ProjectURL("", "demo"))
	assert.Equal(t, "https://mirror.example.com/demo", ProjectURL("https://mirror.example.com/%s", "demo"))
	assert.Equal(t, "http://127.0.0.1:8080", ProjectURL("http://127.0.0.1:8080", "demo"))
}

func TestNewReaderRequiresProject(t *testing.T) {
	_, err := NewReader(nil, nil, nil, nil, Options{})
	assert.Error(t, err)
}

func TestListURL(t *testing.T) {
	r := newTestReader(t, nil, "http://%s.example.com", "demo")

	u := r.ListURL(3)
	assert.True(t, strings.HasPrefix(u, "http://demo.example.com/workitem/list/advanced?"), u)
	for _, part := range []string{
		"page=3", "size=2", "sortField=Id", "sortDirection=Ascending",
		"status=All", "type=All", "priority=All", "release=All",
		"assignedTo=All", "component=All", "keyword=",
	} {
		assert.Contains(t, u, part)
	}
}

func TestReaderRunStagesProject(t *testing.T) {
	site, srv := newFakeSite(t)
	conn := mustStore(t)
	r := newTestReader(t, conn, srv.URL, "demo")

	ls, ds, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &ListStats{Pages: 2, Rows: 3, Flagged: 3, TotalItems: 3}, ls)
	assert.Equal(t, &DetailStats{Refreshed: 3}, ds)
	assert.Equal(t, []string{"list/0", "list/1", "detail/1", "detail/2", "detail/3"}, site.taken())

	issue, err := db.GetIssue(conn, 1)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/workitem/1", issue.Link)
	assert.Equal(t, "dave", issue.Reporter)
	assert.ElementsMatch(t, []string{"low", "bug", "user interface"}, issue.Labels)
	assert.Equal(t, []string{"Release 1.0"}, issue.Milestones)
	assert.Contains(t, issue.Description, "Repro steps here")

	detail, err := db.GetIssueDetail(conn, 1)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "carol", detail.Comments[0].Author)
	assert.Len(t, detail.Attachments, 2)
	value, ok := detail.Metadata.Get("Thanks")
	assert.True(t, ok)
	assert.Equal(t, "Bob", value)

	closed, err := db.GetIssue(conn, 3)
	require.NoError(t, err)
	assert.True(t, closed.Status.IsClosed())
	assert.Equal(t, model.SeverityHigh, closed.Severity)

	_, err = db.GetMeta(conn, db.MetaListNextPage)
	assert.ErrorIs(t, err, db.ErrNotFound)
	project, err := db.GetMeta(conn, db.MetaProject)
	require.NoError(t, err)
	assert.Equal(t, "demo", project)
}

func TestReaderSecondRunSkipsUnchangedDetails(t *testing.T) {
	site, srv := newFakeSite(t)
	conn := mustStore(t)
	r := newTestReader(t, conn, srv.URL, "demo")

	_, _, err := r.Run(context.Background())
	require.NoError(t, err)
	site.taken()

	ls, ds, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, ls.Flagged)
	assert.Equal(t, 0, ds.Refreshed)
	assert.Equal(t, []string{"list/0", "list/1"}, site.taken())
}

func TestScrapeListResumesFromRecordedPage(t *testing.T) {
	site, srv := newFakeSite(t)
	conn := mustStore(t)
	r := newTestReader(t, conn, srv.URL, "demo")
	require.NoError(t, db.SetMeta(conn, db.MetaListNextPage, "1"))

	ls, err := r.ScrapeList(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, ls.Pages)
	assert.Equal(t, []string{"list/1"}, site.taken())

	_, err = db.GetIssue(conn, 1)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = db.GetIssue(conn, 3)
	assert.NoError(t, err)
}

func TestScrapeListUnknownTotalStopsAtEmptyPage(t *testing.T) {
	site, srv := newFakeSite(t)
	site.pages = map[string]string{"0": "list_unpaged.html"}
	conn := mustStore(t)
	r := newTestReader(t, conn, srv.URL, "demo")

	ls, err := r.ScrapeList(context.Background())
	require.NoError(t, err)

	assert.Equal(t, -1, ls.TotalItems)
	assert.Equal(t, 1, ls.Pages)
	assert.Equal(t, 1, ls.Rows)
	assert.Equal(t, []string{"list/0", "list/1"}, site.taken())
}

func TestScrapeListRejectsOtherProject(t *testing.T) {
	site, srv := newFakeSite(t)
	conn := mustStore(t)
	require.NoError(t, db.SetMeta(conn, db.MetaProject, "other"))

	r := newTestReader(t, conn, srv.URL, "demo")
	_, err := r.ScrapeList(context.Background())
	require.ErrorIs(t, err, ErrProjectMismatch)
	assert.Contains(t, err.Error(), `"other"`)
	assert.Empty(t, site.taken())
}

func TestScrapeListStopsOnInterrupt(t *testing.T) {
	site, srv := newFakeSite(t)
	conn := mustStore(t)

	interrupt := make(chan os.Signal, 1)
	interrupt <- os.Interrupt
	ctrl := retry.New(retry.Policy{Interval: time.Millisecond, MaxAttempts: 3}, nil,
		retry.WithInterrupt(interrupt),
		retry.WithConfirmer(func(string) (bool, error) { return true, nil }),
	)
	logger := quietLogger()
	r, err := NewReader(conn, NewClient(nil, ctrl, logger), ctrl, logger, Options{
		Project: "demo", BaseURL: srv.URL, PageSize: 2,
	})
	require.NoError(t, err)

	_, err = r.ScrapeList(context.Background())
	assert.ErrorIs(t, err, retry.ErrAborted)
	assert.Empty(t, site.taken())
}
