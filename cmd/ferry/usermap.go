package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/output"
	"github.com/ALT-F4-LLC/ferry/internal/render"
)

var usermapCmd = &cobra.Command{
	Use:   "usermap",
	Short: "Manage source to GitHub user mappings",
}

var usermapLoadCmd = &cobra.Command{
	Use:         "load <file>",
	Short:       "Load source=github lines from a file",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"initDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		n, err := loadUserMap(getDB(cmd), args[0])
		if err != nil {
			return err
		}

		w.Success(struct {
			Loaded int    `json:"loaded"`
			File   string `json:"file"`
		}{Loaded: n, File: args[0]}, fmt.Sprintf("Loaded %d user mappings", n))
		return nil
	},
}

var usermapListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored user mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		mappings, err := db.ListUserMappings(getDB(cmd))
		if err != nil {
			return cmdErr(fmt.Errorf("listing user mappings: %w", err), output.ErrGeneral)
		}
		if mappings == nil {
			mappings = []model.UserMapping{}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderUserMap(mappings)
		}
		w.Success(mappings, message)
		return nil
	},
}

func init() {
	usermapCmd.AddCommand(usermapLoadCmd)
	usermapCmd.AddCommand(usermapListCmd)
	rootCmd.AddCommand(usermapCmd)
}
