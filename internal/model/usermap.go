package model

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// UserMapping maps a source identity to a target login.
type UserMapping struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// ParseUserMap reads "source=target" lines. Surrounding whitespace is
// trimmed, blank lines and lines starting with '#' are skipped, and a later
// line wins over an earlier one for the same source identity. The result is
// sorted by source identity.
func ParseUserMap(r io.Reader) ([]UserMapping, error) {
	byID := make(map[string]string)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		src, dst, ok := strings.Cut(line, "=")
		src = strings.TrimSpace(src)
		dst = strings.TrimSpace(dst)
		if !ok || src == "" || dst == "" {
			return nil, fmt.Errorf("line %d: expected source=target, got %q", lineNo, line)
		}
		byID[src] = dst
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading user map: %w", err)
	}

	mappings := make([]UserMapping, 0, len(byID))
	for src, dst := range byID {
		mappings = append(mappings, UserMapping{SourceID: src, TargetID: dst})
	}
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].SourceID < mappings[j].SourceID
	})

	return mappings, nil
}
