package normalize

import (
	"fmt"
	"strings"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// FooterHeading opens the metadata footer BuildDescription writes.
const FooterHeading = "Work Item Details\n--------------------\n"

// BuildDescription appends the "Work Item Details" footer to a tag-free
// body. The footer links back to the source issue and lists every metadata
// entry in order.
func BuildDescription(body string, sourceID int, link string, meta model.MetadataList) string {
	var b strings.Builder

	body = strings.TrimSpace(body)
	if body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	b.WriteString(FooterHeading)
	fmt.Fprintf(&b, "**Original Issue:**\t[Issue %d](%s)\n", sourceID, link)
	for _, m := range meta {
		fmt.Fprintf(&b, "**%s:**\t%s\n", m.Name, m.Value)
	}

	return b.String()
}
