package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/ferry/internal/render"
)

// mark decorates one kind of human-mode line. Without colors only the
// label survives, so plain output stays greppable.
type mark struct {
	icon  string
	label string
	color lipgloss.Color
	bold  bool
	dim   bool
}

var (
	successMark = mark{icon: "✔", color: "2"}
	errorMark   = mark{icon: "✘", label: "Error:", color: "1", bold: true}
	infoMark    = mark{icon: "ℹ", color: "8", dim: true}
	warnMark    = mark{icon: "⚠", label: "Warning:", color: "3", bold: true}
	phaseMark   = mark{label: "==>", color: "12", bold: true}
	timingMark  = mark{label: "   ", color: "8", dim: true}
)

func writeLine(w io.Writer, m mark, msg string) {
	if !render.ColorsEnabled() {
		if m.label == "" {
			fmt.Fprintln(w, msg)
			return
		}
		fmt.Fprintf(w, "%s %s\n", m.label, msg)
		return
	}

	style := lipgloss.NewStyle().Foreground(m.color).Bold(m.bold)
	prefix := m.label
	if m.icon != "" {
		prefix = m.icon
		if m.label != "" {
			prefix += " " + m.label
		}
	}
	if m.dim {
		msg = lipgloss.NewStyle().Foreground(m.color).Render(msg)
	}
	fmt.Fprintf(w, "%s %s\n", style.Render(prefix), msg)
}

// writeResult prints a command result. Tables, detail views and other
// multi-line results are printed as they are.
func writeResult(w io.Writer, message string) {
	switch {
	case message == "":
	case strings.Contains(message, "\n"):
		fmt.Fprintln(w, message)
	default:
		writeLine(w, successMark, message)
	}
}
