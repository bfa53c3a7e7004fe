package main

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/ferry/internal/output"
	"github.com/ALT-F4-LLC/ferry/internal/source"
)

type scrapeResult struct {
	Project string              `json:"project"`
	List    *source.ListStats   `json:"list,omitempty"`
	Detail  *source.DetailStats `json:"detail,omitempty"`
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [project]",
	Short: "Stage a legacy project's issues locally",
	Long: `Walk the project's issue list page by page, then fetch the detail page of
every new or changed issue. Progress is committed as it goes, so an
interrupted scrape picks up where it stopped.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"initDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		if len(args) == 1 {
			getCfg(cmd).Source.Project = args[0]
		}
		skipList, _ := cmd.Flags().GetBool("skip-list")

		res, err := runScrape(cmd, w, skipList)
		if err != nil {
			return err
		}

		w.Success(res, formatScrapeHuman(res))
		return nil
	},
}

// runScrape runs the list phase (unless skipped) and the detail phase.
func runScrape(cmd *cobra.Command, w *output.Writer, skipList bool) (*scrapeResult, error) {
	cfg := getCfg(cmd)
	conn := getDB(cmd)
	logger := getLogger(cmd)

	if cfg.Source.Project == "" && skipList {
		project, err := stagedProject(conn)
		if err != nil {
			return nil, cmdErr(fmt.Errorf("reading staged project: %w", err), output.ErrGeneral)
		}
		cfg.Source.Project = project
	}
	if err := cfg.ValidateSource(); err != nil {
		return nil, cmdErr(err, output.ErrValidation)
	}

	ctrl := newController(cmd)
	client := source.NewClient(newHTTPClient(), ctrl, logger)
	reader, err := source.NewReader(conn, client, ctrl, logger, source.Options{
		Project:  cfg.Source.Project,
		BaseURL:  cfg.Source.BaseURL,
		PageSize: cfg.Source.PageSize,
	})
	if err != nil {
		return nil, cmdErr(err, output.ErrValidation)
	}

	ctx := cmd.Context()
	res := &scrapeResult{Project: cfg.Source.Project}

	if !skipList {
		w.Phase(fmt.Sprintf("Scraping issue list of %s", cfg.Source.Project))
		ls, err := reader.ScrapeList(ctx)
		res.List = ls
		if err != nil {
			return nil, runErr(fmt.Errorf("list phase: %w", err))
		}
	}

	w.Phase("Scraping issue details")
	ds, err := reader.ScrapeDetails(ctx)
	res.Detail = ds
	if err != nil {
		return nil, runErr(fmt.Errorf("detail phase: %w", err))
	}

	return res, nil
}

func formatScrapeHuman(res *scrapeResult) string {
	var parts []string
	if res.List != nil {
		parts = append(parts, fmt.Sprintf("%s rows on %s pages, %s new or changed",
			humanize.Comma(int64(res.List.Rows)),
			humanize.Comma(int64(res.List.Pages)),
			humanize.Comma(int64(res.List.Flagged)),
		))
	}
	if res.Detail != nil {
		parts = append(parts, fmt.Sprintf("%s details refreshed", humanize.Comma(int64(res.Detail.Refreshed))))
	}
	return fmt.Sprintf("Staged %s: %s", res.Project, strings.Join(parts, "; "))
}

func init() {
	scrapeCmd.Flags().Bool("skip-list", false, "Only refresh details of issues already flagged")
	rootCmd.AddCommand(scrapeCmd)
}
