package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// TagPolicy says what happens to an embedded description tag.
type TagPolicy int

const (
	// TagMetadata removes the tag and its content and records a metadata entry.
	TagMetadata TagPolicy = iota
	// TagInline strips the tag markers and keeps the content in place.
	TagInline
	// TagReporter removes the tag and uses its content as the reporter.
	TagReporter
)

// Tag is one entry of the embedded tag table.
type Tag struct {
	Name   string
	Policy TagPolicy
}

// Tags lists the pseudo-XML tags recognized in descriptions, in processing order.
var Tags = []Tag{
	{"Test", TagMetadata},
	{"ResolvedBy", TagMetadata},
	{"Description", TagInline},
	{"Repro", TagInline},
	{"History", TagInline},
	{"Creator", TagReporter},
	{"ReportedBy", TagReporter},
	{"CreatedDate", TagMetadata},
	{"NewInternalID", TagMetadata},
	{"OldInternalID", TagMetadata},
	{"AreaPath", TagMetadata},
	{"Area", TagMetadata},
	{"OpenBuild", TagMetadata},
	{"Thanks", TagMetadata},
}

// TagResult is the outcome of ExtractHTMLTags.
type TagResult struct {
	Body     string
	Reporter string
	Metadata model.MetadataList
}

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

// ExtractHTMLTags makes one pass over a description HTML fragment per entry
// of Tags and applies each tag's policy to every occurrence. Markers appear
// escaped, as &lt;Name&gt;. Reporter and metadata values are the unescaped
// text of the tag content; the body stays HTML so it can be converted to
// markdown afterwards. A tag with blank content is removed without
// producing anything. An opening marker with no closing marker is left
// untouched.
func ExtractHTMLTags(fragment string) (TagResult, error) {
	var res TagResult

	text := fragment
	for _, tag := range Tags {
		open := "&lt;" + tag.Name + "&gt;"
		closing := "&lt;/" + tag.Name + "&gt;"

		var out strings.Builder
		rest := text
		for {
			i := strings.Index(rest, open)
			if i < 0 {
				break
			}
			start := i + len(open)
			j := strings.Index(rest[start:], closing)
			if j < 0 {
				break
			}
			inner := rest[start : start+j]
			lines, err := HTMLLines(inner)
			if err != nil {
				return TagResult{}, fmt.Errorf("reading %s tag: %w", tag.Name, err)
			}
			value := strings.Join(lines, " ")

			out.WriteString(rest[:i])
			switch {
			case value == "":
			case tag.Policy == TagInline:
				out.WriteString(inner)
			case tag.Policy == TagReporter:
				res.Reporter = value
			default:
				res.Metadata.Set(tag.Name, value)
			}
			rest = rest[start+j+len(closing):]
		}
		out.WriteString(rest)
		text = out.String()
	}

	res.Body = strings.TrimSpace(extraBlankLines.ReplaceAllString(text, "\n\n"))
	return res, nil
}
