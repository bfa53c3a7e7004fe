package main

import (
	"errors"
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/ferry/internal/config"
	"github.com/ALT-F4-LLC/ferry/internal/importer"
	"github.com/ALT-F4-LLC/ferry/internal/output"
	"github.com/ALT-F4-LLC/ferry/internal/source"
	"github.com/ALT-F4-LLC/ferry/internal/target"
)

type importResult struct {
	Repository string `json:"repository"`
	*importer.Result
}

var importCmd = &cobra.Command{
	Use:   "import [owner/repo]",
	Short: "Create staged issues on a GitHub repository",
	Long: `Replay every pending staged issue onto the repository in ascending id
order: body, attachments, comments, labels, milestone and state. An issue
is marked done only once all of it has been written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		applyImportFlags(cmd, args)

		res, err := runImport(cmd, w)
		if err != nil {
			return err
		}

		w.Success(res, formatImportHuman(res))
		return nil
	},
}

// applyImportFlags overlays the target argument and import flags on the
// loaded configuration.
func applyImportFlags(cmd *cobra.Command, args []string) {
	cfg := getCfg(cmd)
	if len(args) == 1 {
		cfg.Target.Repo = args[0]
	}
	if cmd.Flags().Changed("org") {
		cfg.Target.Org, _ = cmd.Flags().GetString("org")
	}
	if cmd.Flags().Changed("skip-closed") {
		cfg.Import.SkipClosed, _ = cmd.Flags().GetBool("skip-closed")
	}
	if cmd.Flags().Changed("count") {
		cfg.Import.MaxCount, _ = cmd.Flags().GetInt("count")
	}
	if cmd.Flags().Changed("usermap") {
		cfg.UserMap, _ = cmd.Flags().GetString("usermap")
	}
}

func addImportFlags(cmd *cobra.Command) {
	cmd.Flags().String("org", "", "Create issues in this organization's repository")
	cmd.Flags().Bool("skip-closed", false, "Skip issues that are closed on the source")
	cmd.Flags().Int("count", -1, "Import at most this many issues (-1 for all)")
	cmd.Flags().String("usermap", "", "File of source=github user mappings to load first")
}

func runImport(cmd *cobra.Command, w *output.Writer) (*importResult, error) {
	cfg := getCfg(cmd)
	conn := getDB(cmd)
	logger := getLogger(cmd)

	if err := cfg.ValidateTarget(); err != nil {
		return nil, cmdErr(err, output.ErrValidation)
	}
	token, from, err := cfg.Token()
	if err != nil {
		code := output.ErrGeneral
		if errors.Is(err, config.ErrNoToken) {
			code = output.ErrValidation
		}
		return nil, cmdErr(err, code)
	}
	logger.WithField("source", from).Debug("resolved GitHub token")

	if cfg.UserMap != "" {
		n, err := loadUserMap(conn, cfg.UserMap)
		if err != nil {
			return nil, err
		}
		w.Info("Loaded %d user mappings from %s", n, cfg.UserMap)
	}

	ctrl := newController(cmd)
	gh, err := target.NewGitHub(target.Options{
		Repo:    cfg.Target.Repo,
		Owner:   cfg.Target.Owner,
		Org:     cfg.Target.Org,
		Token:   token,
		BaseURL: cfg.Target.BaseURL,
	}, newHTTPClient(), ctrl, logger)
	if err != nil {
		return nil, cmdErr(err, output.ErrValidation)
	}
	files := source.NewClient(newHTTPClient(), ctrl, logger)

	im := importer.New(conn, gh, files, ctrl, logger, importer.Options{
		SkipClosed:    cfg.Import.SkipClosed,
		MaxCount:      cfg.Import.MaxCount,
		RateLimitWarn: cfg.Import.RateLimitWarn,
		BodyLimit:     cfg.Import.BodyLimit,
		CommentPause:  cfg.Import.CommentPause,
	})

	w.Phase(fmt.Sprintf("Importing into %s", gh.Repository()))
	res, err := im.Run(cmd.Context())
	if err != nil {
		if res != nil {
			logger.WithFields(logrus.Fields{
				"imported":  res.Imported,
				"remaining": res.Remaining,
			}).Warn("import stopped early")
		}
		return nil, runErr(err)
	}

	return &importResult{Repository: gh.Repository(), Result: res}, nil
}

func formatImportHuman(res *importResult) string {
	msg := fmt.Sprintf("Imported %s issues into %s", humanize.Comma(int64(res.Imported)), res.Repository)
	if res.Skipped > 0 {
		msg += fmt.Sprintf(", skipped %s", humanize.Comma(int64(res.Skipped)))
	}
	if res.Remaining > 0 {
		msg += fmt.Sprintf(", %s still pending", humanize.Comma(int64(res.Remaining)))
	}
	return msg
}

func init() {
	addImportFlags(importCmd)
	rootCmd.AddCommand(importCmd)
}
