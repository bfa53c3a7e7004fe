package importer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/target"
)

const commentTimeLayout = "2006-01-02 15:04:05 UTC"

// SplitBody cuts body into chunks of at most limit bytes. A body shorter
// than or equal to limit is returned whole. Cut points move back to the
// start of a rune, so chunks concatenate to exactly the input.
func SplitBody(body string, limit int) []string {
	if limit <= 0 || len(body) <= limit {
		return []string{body}
	}

	var chunks []string
	for len(body) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		chunks = append(chunks, body[:cut])
		body = body[cut:]
	}
	if body != "" {
		chunks = append(chunks, body)
	}
	return chunks
}

// FormatComment renders a staged comment as a target comment body.
func FormatComment(c model.Comment) string {
	return fmt.Sprintf("On *%s*, **%s** commented:\n\n%s",
		c.CreatedAt.UTC().Format(commentTimeLayout), c.AuthorOrUnknown(), c.Body)
}

// GistDescription is the description of the gist holding an issue's
// plain-text attachments.
func GistDescription(sourceID int) string {
	return fmt.Sprintf("Issue #%d Plain Text Attachments", sourceID)
}

// AppendAttachments adds the attachment sections to an issue body: a link
// to the gist bundling the plain-text files, then one direct link per
// binary file.
func AppendAttachments(body string, gist *target.Gist, binary []model.Attachment) string {
	var b strings.Builder
	b.WriteString(body)

	if gist != nil {
		fmt.Fprintf(&b, "\n\n#### Plaintext Attachments\n\n[%s](%s)", gist.Description, gist.URL)
	}
	if len(binary) > 0 {
		b.WriteString("\n\n#### Binary Attachments\n\n")
		for _, a := range binary {
			fmt.Fprintf(&b, "[%s](%s)\n", a.Name, a.URL)
		}
	}
	return b.String()
}
