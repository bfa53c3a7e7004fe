package render

import (
	"os"
	"strings"
	"testing"

	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/normalize"
)

func TestStripFooter(t *testing.T) {
	meta := model.MetadataList{{Name: "Votes", Value: "3"}}

	tests := []struct {
		name        string
		description string
		want        string
	}{
		{"with body", normalize.BuildDescription("It crashes.", 7, "http://p/7", meta), "It crashes."},
		{"footer only", normalize.BuildDescription("", 7, "http://p/7", meta), ""},
		{"no footer", "  plain text \n", "plain text"},
		{"quoted heading", "see Work Item Details\n--------------------\nabove", "see Work Item Details\n--------------------\nabove"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFooter(tt.description); got != tt.want {
				t.Errorf("StripFooter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderMarkdownPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	in := "**bold** text"
	got, err := RenderMarkdown(in)
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if got != in {
		t.Errorf("RenderMarkdown = %q, want content unchanged", got)
	}
}

func TestRenderMarkdownColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	os.Unsetenv("NO_COLOR")
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("GLAMOUR_STYLE", "notty")

	got, err := RenderMarkdown("Hello **world**")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if !strings.Contains(got, "world") {
		t.Errorf("RenderMarkdown = %q, want rendered text", got)
	}
	if strings.HasPrefix(got, " ") || strings.HasSuffix(got, "\n") {
		t.Errorf("RenderMarkdown = %q, want trimmed output", got)
	}
}

func TestColorsEnabled(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	os.Unsetenv("NO_COLOR")
	t.Setenv("TERM", "xterm")
	if !ColorsEnabled() {
		t.Error("ColorsEnabled = false, want true")
	}

	t.Setenv("TERM", "dumb")
	if ColorsEnabled() {
		t.Error("ColorsEnabled = true with TERM=dumb")
	}

	t.Setenv("TERM", "xterm")
	t.Setenv("NO_COLOR", "")
	if ColorsEnabled() {
		t.Error("ColorsEnabled = true with NO_COLOR set")
	}
}
