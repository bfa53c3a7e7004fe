package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/output"
	"github.com/ALT-F4-LLC/ferry/internal/render"
)

type listResult struct {
	Issues []*model.Issue `json:"issues"`
	Total  int            `json:"total"`
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List staged issues",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		pending, _ := cmd.Flags().GetBool("pending")
		done, _ := cmd.Flags().GetBool("done")
		status, _ := cmd.Flags().GetString("status")
		label, _ := cmd.Flags().GetString("label")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		if pending && done {
			return cmdErr(fmt.Errorf("--pending and --done are mutually exclusive"), output.ErrValidation)
		}
		if limit < 0 || offset < 0 {
			return cmdErr(fmt.Errorf("--limit and --offset must not be negative"), output.ErrValidation)
		}

		issues, total, err := db.ListIssues(conn, db.ListOptions{
			OnlyPending: pending,
			OnlyDone:    done,
			Status:      status,
			Label:       label,
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			return cmdErr(fmt.Errorf("listing issues: %w", err), output.ErrGeneral)
		}
		if issues == nil {
			issues = []*model.Issue{}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderTable(issues)
			if total > len(issues) && len(issues) > 0 {
				message += fmt.Sprintf("\nShowing %d of %d", len(issues), total)
			}
		}
		w.Success(listResult{Issues: issues, Total: total}, message)

		return nil
	},
}

func init() {
	listCmd.Flags().Bool("pending", false, "Only issues not yet imported")
	listCmd.Flags().Bool("done", false, "Only imported issues")
	listCmd.Flags().StringP("status", "s", "", "Filter by source status")
	listCmd.Flags().StringP("label", "l", "", "Filter by label")
	listCmd.Flags().Int("limit", 50, "Maximum number of results (0 for all)")
	listCmd.Flags().Int("offset", 0, "Skip this many results")
	rootCmd.AddCommand(listCmd)
}
