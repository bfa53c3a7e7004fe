package render

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/ALT-F4-LLC/ferry/internal/normalize"
)

const (
	defaultWrap = 80
	maxWrap     = 100
)

// ColorsEnabled reports whether human output may use terminal styling.
// NO_COLOR (any value) and TERM=dumb turn it off.
func ColorsEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// StripFooter returns the part of a staged description above its
// "Work Item Details" footer. The detail view prints the link and the
// metadata entries on their own, so the footer would only repeat them.
func StripFooter(description string) string {
	i := strings.LastIndex(description, normalize.FooterHeading)
	if i < 0 || (i > 0 && description[i-1] != '\n') {
		return strings.TrimSpace(description)
	}
	return strings.TrimSpace(description[:i])
}

func wrapWidth() int {
	width := defaultWrap
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	return min(width, maxWrap)
}

// RenderMarkdown renders converted issue or comment markdown for the
// terminal, wrapped to the terminal width. Without colors the content is
// returned as is.
func RenderMarkdown(content string) (string, error) {
	if content == "" || !ColorsEnabled() {
		return content, nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithEnvironmentConfig(),
		glamour.WithWordWrap(wrapWidth()),
	)
	if err != nil {
		return content, err
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return strings.TrimSpace(rendered), nil
}
