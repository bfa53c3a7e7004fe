package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ALT-F4-LLC/ferry/internal/config"
	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/output"
)

type configInfo struct {
	ConfigFile    string         `json:"config_file"`
	StagingDir    string         `json:"staging_dir"`
	DBPath        string         `json:"db_path"`
	DBExists      bool           `json:"db_exists"`
	DBSizeBytes   int64          `json:"db_size_bytes"`
	SchemaVersion int            `json:"schema_version"`
	FerryPathSet  bool           `json:"ferry_path_set"`
	TokenSource   string         `json:"token_source"`
	Settings      *config.Config `json:"settings"`
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Display the resolved configuration",
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		info := configInfo{
			ConfigFile:   cfg.ConfigFile,
			StagingDir:   cfg.Staging.Dir,
			DBPath:       cfg.DBPath(),
			FerryPathSet: cfg.EnvVarSet,
			Settings:     cfg,
		}

		if _, from, err := cfg.Token(); err == nil {
			info.TokenSource = from
		} else if !errors.Is(err, config.ErrNoToken) {
			w.Warn("%v", err)
		}

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking staging store: %w", err), output.ErrGeneral)
		}
		if exists {
			info.DBExists = true

			conn, err := db.OpenReadOnly(cfg.DBPath())
			if err != nil {
				return cmdErr(fmt.Errorf("opening staging store: %w", err), output.ErrGeneral)
			}
			defer conn.Close()

			info.SchemaVersion, err = db.SchemaVersion(conn)
			if err != nil {
				return cmdErr(err, output.ErrGeneral)
			}
			stat, err := os.Stat(cfg.DBPath())
			if err != nil {
				return cmdErr(fmt.Errorf("reading staging store file: %w", err), output.ErrGeneral)
			}
			info.DBSizeBytes = stat.Size()
		} else {
			w.Warn("No staging store found. Run 'ferry init' or 'ferry scrape' to create one.")
		}

		w.Success(info, formatConfigHuman(info))
		return nil
	},
}

func orNotSet(val string) string {
	if val == "" {
		return "(not set)"
	}
	return val
}

func formatConfigHuman(info configInfo) string {
	cfg := info.Settings

	var b strings.Builder
	fmt.Fprintf(&b, "Config file:     %s\n", orNotSet(info.ConfigFile))
	if info.DBExists {
		fmt.Fprintf(&b, "Staging store:   %s\n", info.DBPath)
		fmt.Fprintf(&b, "Store size:      %s\n", humanize.Bytes(uint64(info.DBSizeBytes)))
		fmt.Fprintf(&b, "Schema version:  %d\n", info.SchemaVersion)
	} else {
		fmt.Fprintf(&b, "Staging store:   %s (not found)\n", info.DBPath)
	}
	fmt.Fprintf(&b, "FERRY_PATH:      %s\n", orNotSet(os.Getenv("FERRY_PATH")))
	fmt.Fprintf(&b, "Source project:  %s\n", orNotSet(cfg.Source.Project))
	fmt.Fprintf(&b, "Source URL:      %s\n", cfg.Source.BaseURL)
	fmt.Fprintf(&b, "Target repo:     %s\n", orNotSet(cfg.Target.Repo))
	if cfg.Target.Org != "" {
		fmt.Fprintf(&b, "Target org:      %s\n", cfg.Target.Org)
	}
	fmt.Fprintf(&b, "GitHub token:    %s\n", orNotSet(info.TokenSource))

	attempts := "unbounded"
	if cfg.Retry.MaxAttempts > 0 {
		attempts = fmt.Sprintf("%d attempts", cfg.Retry.MaxAttempts)
	}
	fmt.Fprintf(&b, "Retry:           every %s, %s", cfg.Retry.Interval, attempts)

	return b.String()
}

var configSetTokenCmd = &cobra.Command{
	Use:         "set-token [token]",
	Short:       "Store a GitHub token in the OS keychain",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return cmdErr(fmt.Errorf("no token given and stdin is not a terminal"), output.ErrValidation)
			}
			fmt.Fprint(os.Stderr, "GitHub token: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return cmdErr(fmt.Errorf("reading token: %w", err), output.ErrGeneral)
			}
			token = string(raw)
		}

		if err := config.SetToken(strings.TrimSpace(token)); err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		w.Success(struct {
			Stored bool `json:"stored"`
		}{Stored: true}, "Stored GitHub token in the OS keychain")
		return nil
	},
}

var configDeleteTokenCmd = &cobra.Command{
	Use:         "delete-token",
	Short:       "Remove the GitHub token from the OS keychain",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		if err := config.DeleteToken(); err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
		w.Success(struct {
			Deleted bool `json:"deleted"`
		}{Deleted: true}, "Removed GitHub token from the OS keychain")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetTokenCmd)
	configCmd.AddCommand(configDeleteTokenCmd)
	rootCmd.AddCommand(configCmd)
}
