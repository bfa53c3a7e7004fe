package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/output"
)

type migrateResult struct {
	Scrape *scrapeResult `json:"scrape,omitempty"`
	Import *importResult `json:"import,omitempty"`
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <project> <owner/repo>",
	Short: "Scrape a legacy project and import it into GitHub",
	Long: `Run a full migration: stage the project, pause for confirmation, then
import every pending issue. Re-running continues where the last run stopped.`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{"initDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)
		getCfg(cmd).Source.Project = args[0]
		applyImportFlags(cmd, args[1:])

		skipScrape, _ := cmd.Flags().GetBool("skip-scrape")
		yes, _ := cmd.Flags().GetBool("yes")

		result := migrateResult{}
		if !skipScrape {
			res, err := runScrape(cmd, w, false)
			if err != nil {
				return err
			}
			result.Scrape = res
			w.Info("%s", formatScrapeHuman(res))
		}

		stats, err := db.GetStats(conn)
		if err != nil {
			return cmdErr(fmt.Errorf("counting staged issues: %w", err), output.ErrGeneral)
		}
		ready := stats.Pending - stats.NeedsDetail
		if ready <= 0 {
			msg := "Nothing left to import"
			if stats.NeedsDetail > 0 {
				msg = fmt.Sprintf("Nothing ready to import, %s issues await their detail scrape", humanize.Comma(int64(stats.NeedsDetail)))
			}
			w.Success(result, msg)
			return nil
		}

		if !yes {
			if w.JSONMode || !term.IsTerminal(int(os.Stdin.Fd())) {
				return cmdErr(fmt.Errorf("refusing to import without confirmation, pass --yes"), output.ErrValidation)
			}

			var confirmed bool
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Import %s pending issues into %s?", humanize.Comma(int64(ready)), args[1])).
						Affirmative("Yes, import").
						Negative("Cancel").
						Value(&confirmed),
				),
			)

			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					w.Info("Cancelled.")
					return nil
				}
				return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
			}
			if !confirmed {
				w.Info("Cancelled.")
				return nil
			}
		}

		res, err := runImport(cmd, w)
		if err != nil {
			return err
		}
		result.Import = res

		w.Success(result, formatImportHuman(res))
		return nil
	},
}

func init() {
	addImportFlags(migrateCmd)
	migrateCmd.Flags().Bool("skip-scrape", false, "Import what is already staged without scraping")
	migrateCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation before importing")
	rootCmd.AddCommand(migrateCmd)
}
