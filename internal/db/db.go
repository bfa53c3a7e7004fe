package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"
)

// storePragmas apply to every pooled connection of a staging store.
var storePragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Open opens or creates the staging store at path in WAL mode, with
// foreign keys on so detail rows cascade with their issue.
func Open(path string) (*sql.DB, error) {
	return open(path, append(storePragmas, "journal_mode(WAL)"))
}

// OpenReadOnly opens an existing staging store for inspection. Writes
// fail, and the journal mode is left as the store has it.
func OpenReadOnly(path string) (*sql.DB, error) {
	return open(path, append(storePragmas, "query_only(1)"))
}

func open(path string, pragmas []string) (*sql.DB, error) {
	if strings.ContainsRune(path, '?') {
		return nil, fmt.Errorf("staging store path %q must not contain '?'", path)
	}

	q := url.Values{"_pragma": pragmas}
	conn, err := sql.Open("sqlite", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One writer at a time; the scraper and importer run sequentially.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return conn, nil
}
