package render

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// RenderDetail renders a staged issue with its description, metadata,
// attachments, and comments.
func RenderDetail(issue *model.Issue, detail *model.IssueDetail) string {
	if detail == nil {
		detail = &model.IssueDetail{IssueID: issue.ID}
	}
	if !ColorsEnabled() {
		return renderPlainDetail(issue, detail)
	}

	sections := []string{renderHeader(issue), renderFields(issue, detail)}

	if len(detail.Metadata) > 0 {
		sections = append(sections, renderMetadata(detail.Metadata))
	}
	if body := StripFooter(issue.Description); body != "" {
		sections = append(sections, renderDescription(body))
	}
	if len(detail.Attachments) > 0 {
		sections = append(sections, renderAttachments(detail.Attachments))
	}
	if len(detail.Comments) > 0 {
		sections = append(sections, renderComments(detail.Comments))
	}

	return strings.Join(sections, "\n\n")
}

func sectionHeader(name string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Render(name)
}

func renderHeader(issue *model.Issue) string {
	idStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	titleStyle := lipgloss.NewStyle().Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(ColorFromName(issue.Status.Color())).Bold(true)
	severityStyle := lipgloss.NewStyle().Foreground(ColorFromName(issue.Severity.Color())).Bold(true)
	targetStyle := lipgloss.NewStyle().Foreground(ColorFromName("gray"))
	if issue.Imported() {
		targetStyle = targetStyle.Foreground(ColorFromName("green"))
	}

	return fmt.Sprintf("%s  %s\n%s  %s  %s",
		idStyle.Render(model.FormatID(issue.ID)),
		titleStyle.Render(issue.Title),
		statusStyle.Render(string(issue.Status)),
		severityStyle.Render(severityLabel(issue.Severity)),
		targetStyle.Render(targetLabel(issue)),
	)
}

func renderFields(issue *model.Issue, detail *model.IssueDetail) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	field := func(name, value string) string {
		return fmt.Sprintf("%s %s", labelStyle.Render(name+":"), value)
	}

	lines := []string{field("Link", issue.Link)}
	if issue.Assignee != "" {
		lines = append(lines, field("Assignee", issue.Assignee))
	}
	if reporter := reporterOf(issue, detail); reporter != "" {
		lines = append(lines, field("Reporter", reporter))
	}
	if len(issue.Labels) > 0 {
		lines = append(lines, field("Labels", strings.Join(issue.Labels, ", ")))
	}
	if len(issue.Milestones) > 0 {
		lines = append(lines, field("Milestones", strings.Join(issue.Milestones, ", ")))
	}
	lines = append(lines, field("Updated", humanize.Time(issue.LastUpdate)))

	return strings.Join(lines, "\n")
}

func reporterOf(issue *model.Issue, detail *model.IssueDetail) string {
	if issue.Reporter != "" {
		return issue.Reporter
	}
	return detail.Reporter
}

func renderMetadata(meta model.MetadataList) string {
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var lines []string
	for _, m := range meta {
		value := m.Value
		if value == "" {
			value = "-"
		}
		lines = append(lines, fmt.Sprintf("  %s %s", nameStyle.Render(m.Name+":"), value))
	}
	return sectionHeader("Metadata") + "\n" + strings.Join(lines, "\n")
}

func renderDescription(description string) string {
	rendered, err := RenderMarkdown(description)
	if err != nil {
		rendered = description
	}
	return sectionHeader("Description") + "\n" + rendered
}

func renderAttachments(attachments []model.Attachment) string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var lines []string
	for _, a := range attachments {
		lines = append(lines, fmt.Sprintf("  ▸ %s %s", a.Name, dimStyle.Render(a.URL)))
	}
	return sectionHeader("Attachments") + "\n" + strings.Join(lines, "\n")
}

func renderComments(comments []model.Comment) string {
	authorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var parts []string
	for _, c := range comments {
		body, err := RenderMarkdown(c.Body)
		if err != nil {
			body = c.Body
		}
		header := fmt.Sprintf("%s  %s",
			authorStyle.Render(c.AuthorOrUnknown()),
			timeStyle.Render(c.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")),
		)
		parts = append(parts, header+"\n"+body)
	}
	return sectionHeader(fmt.Sprintf("Comments (%d)", len(comments))) + "\n" + strings.Join(parts, "\n\n")
}

func renderPlainDetail(issue *model.Issue, detail *model.IssueDetail) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", model.FormatID(issue.ID), issue.Title)
	fmt.Fprintf(&b, "%s  %s  %s\n", issue.Status, severityLabel(issue.Severity), targetLabel(issue))

	b.WriteString("\n")
	fmt.Fprintf(&b, "Link: %s\n", issue.Link)
	if issue.Assignee != "" {
		fmt.Fprintf(&b, "Assignee: %s\n", issue.Assignee)
	}
	if reporter := reporterOf(issue, detail); reporter != "" {
		fmt.Fprintf(&b, "Reporter: %s\n", reporter)
	}
	if len(issue.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(issue.Labels, ", "))
	}
	if len(issue.Milestones) > 0 {
		fmt.Fprintf(&b, "Milestones: %s\n", strings.Join(issue.Milestones, ", "))
	}
	fmt.Fprintf(&b, "Updated: %s\n", humanize.Time(issue.LastUpdate))

	if len(detail.Metadata) > 0 {
		b.WriteString("\nMetadata\n")
		for _, m := range detail.Metadata {
			value := m.Value
			if value == "" {
				value = "-"
			}
			fmt.Fprintf(&b, "  %s: %s\n", m.Name, value)
		}
	}

	if body := StripFooter(issue.Description); body != "" {
		fmt.Fprintf(&b, "\nDescription\n%s\n", body)
	}

	if len(detail.Attachments) > 0 {
		b.WriteString("\nAttachments\n")
		for _, a := range detail.Attachments {
			fmt.Fprintf(&b, "  > %s %s\n", a.Name, a.URL)
		}
	}

	if len(detail.Comments) > 0 {
		fmt.Fprintf(&b, "\nComments (%d)\n", len(detail.Comments))
		for _, c := range detail.Comments {
			fmt.Fprintf(&b, "\n%s  %s\n%s\n",
				c.AuthorOrUnknown(),
				c.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
				c.Body,
			)
		}
	}

	return b.String()
}
