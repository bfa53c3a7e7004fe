package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/normalize"
)

// SideRow is one row of the detail page side table, already split into lines.
type SideRow struct {
	Names  []string
	Values []string
}

// Detail is the raw content of an issue detail page.
type Detail struct {
	Component       string
	Release         string
	ReportedBy      string
	UpdatedBy       string
	Comments        []model.Comment
	SideRows        []SideRow
	DescriptionHTML string
	Attachments     []model.Attachment
}

// ParseDetailPage extracts the detail of one issue. Author and attachment
// links are resolved against base.
func ParseDetailPage(doc *goquery.Document, base *url.URL) (*Detail, error) {
	desc := doc.Find("#descriptionContent").First()
	if desc.Length() == 0 {
		return nil, fmt.Errorf("%w: no description block", ErrUnexpectedPage)
	}

	d := &Detail{
		Component:  strings.TrimSpace(doc.Find("#ComponentLink").First().Text()),
		Release:    strings.TrimSpace(doc.Find("#ReleaseLink").First().Text()),
		ReportedBy: strings.TrimSpace(doc.Find("#ReportedByLink").First().Text()),
		UpdatedBy:  strings.TrimSpace(doc.Find("#UpdatedByLink").First().Text()),
	}

	html, err := desc.Html()
	if err != nil {
		return nil, fmt.Errorf("reading description: %w", err)
	}
	d.DescriptionHTML = html

	doc.Find(`div[id^="CommentContainer"]`).Each(func(_ int, c *goquery.Selection) {
		author := c.Find("a.author").First()
		href, _ := author.Attr("href")
		d.Comments = append(d.Comments, model.Comment{
			Author:     strings.TrimSpace(author.Text()),
			AuthorLink: resolve(base, href),
			Body:       strings.TrimSpace(c.Find("div.markDownOutput").First().Text()),
			CreatedAt:  ticks(c.Find("span.smartDate").First()),
		})
	})

	var sideErr error
	doc.Find("div.right_sidebar_table tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		names, err := cellLines(tr.Find("td.left").First())
		if err != nil {
			sideErr = err
			return false
		}
		values, err := cellLines(tr.Find("td.right").First())
		if err != nil {
			sideErr = err
			return false
		}
		if len(names) > 0 {
			d.SideRows = append(d.SideRows, SideRow{Names: names, Values: values})
		}
		return true
	})
	if sideErr != nil {
		return nil, sideErr
	}

	doc.Find(`a[id^="FileLink"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		d.Attachments = append(d.Attachments, model.Attachment{
			Name: strings.TrimSpace(a.Text()),
			URL:  resolve(base, href),
		})
	})

	return d, nil
}

func cellLines(cell *goquery.Selection) ([]string, error) {
	if cell.Length() == 0 {
		return nil, nil
	}
	inner, err := cell.Html()
	if err != nil {
		return nil, fmt.Errorf("reading side table cell: %w", err)
	}
	return normalize.HTMLLines("<div>" + inner + "</div>")
}
