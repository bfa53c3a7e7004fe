package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/output"
	"github.com/ALT-F4-LLC/ferry/internal/render"
)

type statusResult struct {
	Project    string `json:"project"`
	ResumePage *int   `json:"resume_page,omitempty"`
	*db.Stats
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the staging store",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		project, err := stagedProject(conn)
		if err != nil {
			return cmdErr(fmt.Errorf("reading staged project: %w", err), output.ErrGeneral)
		}
		stats, err := db.GetStats(conn)
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		result := statusResult{Project: project, Stats: stats}
		next, err := db.GetMeta(conn, db.MetaListNextPage)
		switch {
		case errors.Is(err, db.ErrNotFound):
		case err != nil:
			return cmdErr(fmt.Errorf("reading list progress: %w", err), output.ErrGeneral)
		default:
			if page, err := strconv.Atoi(next); err == nil {
				result.ResumePage = &page
			}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderStats(project, stats)
			if result.ResumePage != nil {
				message += fmt.Sprintf("\nList scrape interrupted, resumes at page %d", *result.ResumePage)
			}
		}
		w.Success(result, message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
