package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/model"
)

const maxTitleWidth = 40

// StyledText applies a lipgloss style to text when colors are enabled.
// When colors are disabled, it returns the plain text unchanged.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// ColorFromName maps model color name strings to lipgloss colors.
func ColorFromName(name string) lipgloss.Color {
	switch name {
	case "red":
		return lipgloss.Color("9")
	case "yellow":
		return lipgloss.Color("11")
	case "blue":
		return lipgloss.Color("12")
	case "green":
		return lipgloss.Color("10")
	case "gray":
		return lipgloss.Color("8")
	default:
		return lipgloss.Color("15")
	}
}

// truncate shortens a string to maxLen runes, appending an ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// targetLabel is "#N" for an imported issue and "pending" otherwise.
func targetLabel(issue *model.Issue) string {
	if issue.Imported() {
		return fmt.Sprintf("#%d", issue.TargetID)
	}
	return "pending"
}

func severityLabel(s model.Severity) string {
	if s == "" {
		return "-"
	}
	return string(s)
}

// EmptyState renders a styled empty-state message with an optional contextual hint.
// When quiet is true the hint is suppressed.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	result := dimStyle.Render(message)
	if !quiet && hint != "" {
		result += "\n" + hintStyle.Render(hint)
	}
	return result
}

// RenderTable renders staged issues as a formatted table.
func RenderTable(issues []*model.Issue) string {
	if len(issues) == 0 {
		return EmptyState("No staged issues.", "Stage a project with: ferry scrape <project>", false)
	}

	if !ColorsEnabled() {
		return renderPlainTable(issues)
	}

	headers := []string{"ID", "Status", "Severity", "Title", "Assignee", "Labels", "Updated", "Target"}

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, issueToRow(issue))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if row < 0 || row >= len(issues) {
				return s
			}

			issue := issues[row]
			switch col {
			case 0:
				return s.Foreground(lipgloss.Color("15"))
			case 1:
				return s.Foreground(ColorFromName(issue.Status.Color()))
			case 2:
				return s.Foreground(ColorFromName(issue.Severity.Color()))
			case 3:
				return s.Bold(true)
			case 7:
				if issue.Imported() {
					return s.Foreground(ColorFromName("green"))
				}
				return s.Foreground(ColorFromName("gray"))
			default:
				return s
			}
		})

	return t.Render()
}

func issueToRow(issue *model.Issue) []string {
	return []string{
		model.FormatID(issue.ID),
		string(issue.Status),
		severityLabel(issue.Severity),
		truncate(issue.Title, maxTitleWidth),
		issue.Assignee,
		truncate(strings.Join(issue.Labels, ", "), 24),
		humanize.Time(issue.LastUpdate),
		targetLabel(issue),
	}
}

func renderPlainTable(issues []*model.Issue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-10s %-10s %-8s %-40s %-15s %-24s %-16s %s\n",
		"ID", "Status", "Severity", "Title", "Assignee", "Labels", "Updated", "Target")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 136))

	for _, issue := range issues {
		row := issueToRow(issue)
		fmt.Fprintf(&b, "%-10s %-10s %-8s %-40s %-15s %-24s %-16s %s\n",
			row[0], row[1], row[2], row[3], row[4], row[5], row[6], row[7])
	}

	return b.String()
}

// RenderStats renders a staging summary.
func RenderStats(project string, stats *db.Stats) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	if project == "" {
		project = "(none)"
	}

	type line struct {
		label string
		value string
	}
	lines := []line{
		{"Project:", project},
		{"Staged:", humanize.Comma(int64(stats.Total))},
		{"Imported:", humanize.Comma(int64(stats.Done))},
		{"Pending:", humanize.Comma(int64(stats.Pending))},
		{"Need detail:", humanize.Comma(int64(stats.NeedsDetail))},
		{"Closed:", humanize.Comma(int64(stats.Closed))},
		{"Comments:", humanize.Comma(int64(stats.Comments))},
		{"Attachments:", humanize.Comma(int64(stats.Attachments))},
	}

	var b strings.Builder
	b.WriteString(StyledText("Staging", headerStyle))
	for _, l := range lines {
		b.WriteString("\n")
		if ColorsEnabled() {
			b.WriteString(labelStyle.Render(l.label) + " " + l.value)
		} else {
			fmt.Fprintf(&b, "%-14s %s", l.label, l.value)
		}
	}
	if stats.Total > 0 {
		pct := float64(stats.Done) / float64(stats.Total) * 100
		fmt.Fprintf(&b, "\n%s", StyledText(fmt.Sprintf("%.1f%% migrated", pct), lipgloss.NewStyle().Italic(true)))
	}
	return b.String()
}

// RenderUserMap renders stored user mappings as a two-column table.
func RenderUserMap(mappings []model.UserMapping) string {
	if len(mappings) == 0 {
		return EmptyState("No user mappings.", "Load some with: ferry usermap load <file>", false)
	}

	if !ColorsEnabled() {
		var b strings.Builder
		fmt.Fprintf(&b, "%-24s %s\n", "Source", "GitHub")
		fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 48))
		for _, m := range mappings {
			fmt.Fprintf(&b, "%-24s %s\n", m.SourceID, m.TargetID)
		}
		return b.String()
	}

	rows := make([][]string, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, []string{m.SourceID, m.TargetID})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("Source", "GitHub").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			return s
		}).
		Render()
}
