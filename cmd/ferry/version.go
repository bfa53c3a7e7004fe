package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/render"
)

type versionInfo struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	BuildDate     string `json:"build_date"`
	GoVersion     string `json:"go_version"`
	SchemaVersion int    `json:"schema_version"`
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print ferry version information",
	Annotations: map[string]string{"skipDB": "true"},
	Run: func(cmd *cobra.Command, args []string) {
		info := versionInfo{
			Version:       version,
			Commit:        resolveCommit(),
			BuildDate:     buildDate,
			GoVersion:     runtime.Version(),
			SchemaVersion: db.LatestSchemaVersion(),
		}
		getWriter(cmd).Success(info, formatVersionHuman(info))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// resolveCommit falls back to the VCS revision go build stamped into the
// binary when no commit was set at link time.
func resolveCommit() string {
	if commit != "none" {
		return commit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return shortCommit(s.Value)
			}
		}
	}
	return commit
}

func shortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func formatVersionHuman(info versionInfo) string {
	bold := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	return fmt.Sprintf("ferry %s %s",
		render.StyledText(info.Version, bold),
		render.StyledText(fmt.Sprintf("(commit: %s, built: %s, %s, store schema v%d)",
			info.Commit, info.BuildDate, info.GoVersion, info.SchemaVersion), dim),
	)
}
