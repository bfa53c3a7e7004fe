package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortCommit("0123456789abcdef0123"))
	assert.Equal(t, "abc", shortCommit("abc"))
}

func TestFormatVersionHuman(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := formatVersionHuman(versionInfo{
		Version:       "1.2.0",
		Commit:        "abc123",
		BuildDate:     "2026-01-02",
		GoVersion:     "go1.24.2",
		SchemaVersion: 1,
	})
	assert.Equal(t, "ferry 1.2.0 (commit: abc123, built: 2026-01-02, go1.24.2, store schema v1)", got)
}

func TestResolveCommitPrefersLinkedValue(t *testing.T) {
	saved := commit
	t.Cleanup(func() { commit = saved })

	commit = "deadbeef"
	assert.Equal(t, "deadbeef", resolveCommit())
}
