package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/output"
	"github.com/ALT-F4-LLC/ferry/internal/render"
)

// showResult nests the staged detail next to the issue row.
type showResult struct {
	Issue       *model.Issue       `json:"issue"`
	Comments    []model.Comment    `json:"comments"`
	Attachments []model.Attachment `json:"attachments"`
	Metadata    model.MetadataList `json:"metadata"`
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a staged issue with its comments and attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		id, err := model.ParseID(args[0])
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		issue, err := db.GetIssue(conn, id)
		if errors.Is(err, db.ErrNotFound) {
			return cmdErr(fmt.Errorf("issue %s is not staged", model.FormatID(id)), output.ErrNotFound)
		}
		if err != nil {
			return cmdErr(fmt.Errorf("fetching issue: %w", err), output.ErrGeneral)
		}

		detail, err := db.GetIssueDetail(conn, id)
		if err != nil {
			return cmdErr(fmt.Errorf("fetching issue detail: %w", err), output.ErrGeneral)
		}

		result := showResult{
			Issue:       issue,
			Comments:    detail.Comments,
			Attachments: detail.Attachments,
			Metadata:    detail.Metadata,
		}
		if result.Comments == nil {
			result.Comments = []model.Comment{}
		}
		if result.Attachments == nil {
			result.Attachments = []model.Attachment{}
		}
		if result.Metadata == nil {
			result.Metadata = model.MetadataList{}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderDetail(issue, detail)
		}
		w.Success(result, message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
