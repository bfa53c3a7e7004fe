package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/ALT-F4-LLC/ferry/internal/config"
	"github.com/ALT-F4-LLC/ferry/internal/db"
	"github.com/ALT-F4-LLC/ferry/internal/model"
	"github.com/ALT-F4-LLC/ferry/internal/output"
)

// openStore opens the staging store, creating it when create is set and it
// does not exist yet. It reports whether the store was created.
func openStore(cfg *config.Config, create bool) (*sql.DB, bool, error) {
	exists, err := cfg.Exists()
	if err != nil {
		return nil, false, cmdErr(fmt.Errorf("checking staging store: %w", err), output.ErrGeneral)
	}
	if !exists && !create {
		return nil, false, cmdErr(
			fmt.Errorf("no staging store found, run 'ferry init' or 'ferry scrape' to create one"),
			output.ErrNotFound,
		)
	}

	if !exists {
		if err := os.MkdirAll(cfg.Staging.Dir, 0o755); err != nil {
			return nil, false, cmdErr(fmt.Errorf("creating directory: %w", err), output.ErrGeneral)
		}
	}

	conn, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, false, cmdErr(fmt.Errorf("opening staging store: %w", err), output.ErrGeneral)
	}

	if !exists {
		if err := db.Initialize(conn); err != nil {
			conn.Close()
			return nil, false, cmdErr(fmt.Errorf("initializing schema: %w", err), output.ErrGeneral)
		}
	}
	if err := db.Migrate(conn); err != nil {
		conn.Close()
		return nil, false, cmdErr(fmt.Errorf("migrating schema: %w", err), output.ErrGeneral)
	}

	return conn, !exists, nil
}

// stagedProject returns the project the store was scraped from, or "".
func stagedProject(conn *sql.DB) (string, error) {
	project, err := db.GetMeta(conn, db.MetaProject)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil
	}
	return project, err
}

// loadUserMap stores the mappings from a source=target file.
func loadUserMap(conn *sql.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, cmdErr(fmt.Errorf("opening user map: %w", err), output.ErrValidation)
	}
	defer f.Close()

	mappings, err := model.ParseUserMap(f)
	if err != nil {
		return 0, cmdErr(fmt.Errorf("parsing %s: %w", path, err), output.ErrValidation)
	}
	if err := db.PutUserMappings(conn, mappings); err != nil {
		return 0, cmdErr(fmt.Errorf("storing user map: %w", err), output.ErrGeneral)
	}
	return len(mappings), nil
}
