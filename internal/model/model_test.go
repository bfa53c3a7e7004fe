package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFormatID(t *testing.T) {
	if got := FormatID(5); got != "WI-5" {
		t.Errorf("FormatID(5) = %q, want %q", got, "WI-5")
	}
	if got := FormatID(42); got != "WI-42" {
		t.Errorf("FormatID(42) = %q, want %q", got, "WI-42")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"WI-5", 5, false},
		{"wi-5", 5, false},
		{"5", 5, false},
		{" 42 ", 42, false},
		{"", 0, true},
		{"WI-", 0, true},
		{"abc", 0, true},
		{"WI-0", 0, true},
		{"WI--1", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseID(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestStatusIsClosed(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusClosed, true},
		{"closed", true},
		{" Closed ", true},
		{StatusActive, false},
		{StatusFixed, false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.status.IsClosed(); got != tt.want {
			t.Errorf("Status(%q).IsClosed() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStatusAndSeverityColor(t *testing.T) {
	if c := StatusClosed.Color(); c != "gray" {
		t.Errorf("StatusClosed.Color() = %q, want %q", c, "gray")
	}
	if c := StatusActive.Color(); c != "yellow" {
		t.Errorf("StatusActive.Color() = %q, want %q", c, "yellow")
	}
	if c := SeverityHigh.Color(); c != "red" {
		t.Errorf("SeverityHigh.Color() = %q, want %q", c, "red")
	}
}

func TestIssueJSON(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	issue := Issue{
		ID:         5,
		Title:      "Crash on save",
		Status:     StatusActive,
		Severity:   SeverityHigh,
		LastUpdate: now,
		TargetID:   NoTarget,
		Labels:     []string{"high", "bug"},
	}

	data, err := json.Marshal(issue)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var raw map[string]any
	json.Unmarshal(data, &raw)
	if raw["id"] != "WI-5" {
		t.Errorf("JSON id = %v, want %q", raw["id"], "WI-5")
	}
	if _, exists := raw["target_id"]; exists {
		t.Error("JSON should omit target_id before import")
	}
	if raw["last_update"] != "2026-02-13T12:00:00Z" {
		t.Errorf("JSON last_update = %v", raw["last_update"])
	}
	if ms, ok := raw["milestones"].([]any); !ok || len(ms) != 0 {
		t.Errorf("JSON milestones = %v, want empty array", raw["milestones"])
	}

	issue.TargetID = 17
	issue.Done = true
	data, _ = json.Marshal(issue)
	raw = nil
	json.Unmarshal(data, &raw)
	if raw["target_id"] != float64(17) {
		t.Errorf("JSON target_id = %v, want 17", raw["target_id"])
	}
	if !issue.Imported() {
		t.Error("Imported() = false, want true")
	}
}

func TestCommentAuthorOrUnknown(t *testing.T) {
	if got := (Comment{}).AuthorOrUnknown(); got != "unknown user" {
		t.Errorf("AuthorOrUnknown() = %q, want %q", got, "unknown user")
	}
	if got := (Comment{Author: "bob"}).AuthorOrUnknown(); got != "bob" {
		t.Errorf("AuthorOrUnknown() = %q, want %q", got, "bob")
	}

	data, err := json.Marshal(Comment{ID: 3, IssueID: 5})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"issue_id":"WI-5"`) {
		t.Errorf("comment JSON = %s", data)
	}
}

func TestAttachmentExt(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"log.TXT", ".txt"},
		{"archive.tar.gz", ".gz"},
		{"README", ""},
	}

	for _, tt := range tests {
		if got := (Attachment{Name: tt.name}).Ext(); got != tt.want {
			t.Errorf("Ext(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMetadataListSet(t *testing.T) {
	var l MetadataList
	l.Set("Thanks", "Bob")
	l.Set("Area", "UI")
	l.Set("Thanks", "Alice")

	if len(l) != 2 {
		t.Fatalf("len = %d, want 2", len(l))
	}
	if l[0].Name != "Thanks" || l[0].Value != "Alice" {
		t.Errorf("l[0] = %+v, want Thanks=Alice", l[0])
	}
	if v, ok := l.Get("Area"); !ok || v != "UI" {
		t.Errorf("Get(Area) = %q, %v", v, ok)
	}
	if _, ok := l.Get("Missing"); ok {
		t.Error("Get(Missing) ok = true")
	}
}

func TestParseUserMap(t *testing.T) {
	input := `
# comments are skipped
alice = alice-gh
bob=bob1

alice=alice2
`
	got, err := ParseUserMap(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseUserMap error: %v", err)
	}

	want := []UserMapping{
		{SourceID: "alice", TargetID: "alice2"},
		{SourceID: "bob", TargetID: "bob1"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d mappings, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mapping[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseUserMapMalformed(t *testing.T) {
	for _, input := range []string{"alice", "=bob", "alice="} {
		_, err := ParseUserMap(strings.NewReader("ok=fine\n" + input))
		if err == nil {
			t.Errorf("ParseUserMap(%q) expected error", input)
			continue
		}
		if !strings.Contains(err.Error(), "line 2") {
			t.Errorf("error %q should name line 2", err)
		}
	}
}
