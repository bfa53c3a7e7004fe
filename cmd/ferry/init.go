package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/output"
)

type initResult struct {
	Path          string `json:"path"`
	DBPath        string `json:"db_path"`
	SchemaVersion int    `json:"schema_version"`
	Created       bool   `json:"created"`
}

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Create the local staging store",
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		conn, created, err := openStore(cfg, true)
		if err != nil {
			return err
		}
		defer conn.Close()

		schemaVersion, err := db.SchemaVersion(conn)
		if err != nil {
			return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
		}

		result := initResult{
			Path:          cfg.Staging.Dir,
			DBPath:        cfg.DBPath(),
			SchemaVersion: schemaVersion,
			Created:       created,
		}

		if !created {
			w.Warn("Staging store already exists at %s", cfg.DBPath())
			w.Success(result, "Staging store already initialized")
			return nil
		}

		w.Success(result, "Initialized staging store")
		w.Info("Created %s", cfg.DBPath())
		w.Info("Consider adding .ferry/ to your .gitignore")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
