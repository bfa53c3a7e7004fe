package normalize

import (
	"strings"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// Severity lowercases a scraped severity cell. A blank cell means low.
func Severity(cell string) model.Severity {
	s := strings.ToLower(strings.TrimSpace(cell))
	if s == "" {
		return model.SeverityLow
	}
	return model.Severity(s)
}

// IssueType maps a scraped work item type to the label used on the target:
// issue becomes bug, feature becomes enhancement, anything else is kept.
func IssueType(cell string) string {
	t := strings.ToLower(strings.TrimSpace(cell))
	switch t {
	case "issue":
		return "bug"
	case "feature":
		return "enhancement"
	default:
		return t
	}
}

// Component returns the lowercase label for a component link, or "" when
// the page shows no real component.
func Component(text string) string {
	c := strings.TrimSpace(text)
	switch c {
	case "", "No Component Selected", "All":
		return ""
	}
	return strings.ToLower(c)
}

// Release returns the milestone title for a release link, or "" when the
// issue is not assigned to a release.
func Release(text string) string {
	r := strings.TrimSpace(text)
	switch r {
	case "", "All", "Unassigned":
		return ""
	}
	return r
}

// excludedSideTableNames are side table rows already modeled structurally.
var excludedSideTableNames = []string{
	"Type", "Item number", "User comments", "Impact", "Release", "Component",
}

// SideTable pairs the lines of one side table row. Names lose their ':' and
// values lose "n/a". The value column is padded with empty strings so a name
// without a value is kept with an empty value. Excluded names are dropped.
func SideTable(names, values []string) model.MetadataList {
	var meta model.MetadataList
	for i, raw := range names {
		name := strings.TrimSpace(strings.ReplaceAll(raw, ":", ""))
		if name == "" || excluded(name) {
			continue
		}

		value := ""
		if i < len(values) {
			value = strings.TrimSpace(strings.ReplaceAll(values[i], "n/a", ""))
		}
		meta.Set(name, value)
	}
	return meta
}

func excluded(name string) bool {
	for _, e := range excludedSideTableNames {
		if strings.EqualFold(name, e) {
			return true
		}
	}
	return false
}
