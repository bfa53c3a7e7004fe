package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 1

// schemaDDL contains the CREATE TABLE statements for the staging schema.
// Every dependent table is keyed by the source issue id and cascades on delete.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS issues (
	id            INTEGER PRIMARY KEY,
	link          TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	assignee      TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT '',
	severity      TEXT NOT NULL DEFAULT 'low',
	reporter      TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	last_update   INTEGER NOT NULL DEFAULT 0,
	updated       INTEGER NOT NULL DEFAULT 1,
	done          INTEGER NOT NULL DEFAULT 0,
	target_id     INTEGER NOT NULL DEFAULT -1,
	detail_update INTEGER NOT NULL DEFAULT -1
);

CREATE TABLE IF NOT EXISTS comments (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_id    INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	created_at  INTEGER NOT NULL,
	author      TEXT NOT NULL DEFAULT '',
	author_link TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS attachments (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_id INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	url      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS issue_labels (
	issue_id INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	label    TEXT NOT NULL,
	origin   TEXT NOT NULL DEFAULT 'list',
	PRIMARY KEY (issue_id, label, origin)
);

CREATE TABLE IF NOT EXISTS issue_milestones (
	issue_id  INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL DEFAULT 0,
	milestone TEXT NOT NULL,
	PRIMARY KEY (issue_id, milestone)
);

CREATE TABLE IF NOT EXISTS issue_metadata (
	issue_id INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	value    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (issue_id, name)
);

CREATE TABLE IF NOT EXISTS usermap (
	source_id TEXT PRIMARY KEY,
	target_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_issues_done ON issues(done);
CREATE INDEX IF NOT EXISTS idx_issues_updated ON issues(updated);
CREATE INDEX IF NOT EXISTS idx_comments_issue_id ON comments(issue_id, created_at);
CREATE INDEX IF NOT EXISTS idx_attachments_issue_id ON attachments(issue_id);
`

// Initialize creates all tables if they don't exist and sets the schema version.
func Initialize(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Set schema version only if not already set.
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version from the meta table.
func SchemaVersion(db *sql.DB) (int, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}

	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing schema version %q: %w", val, err)
	}

	return v, nil
}

// migrations is a list of migration functions keyed by the version they migrate TO.
// For example, migrations[2] migrates from version 1 to version 2.
var migrations = map[int]func(tx *sql.Tx) error{}

// Migrate checks the current schema version and applies any pending migrations
// sequentially. It is a no-op when already at the latest version. A store
// written by a newer ferry is rejected rather than silently downgraded.
func Migrate(db *sql.DB) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("staging store schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	for v := version + 1; v <= currentSchemaVersion; v++ {
		migrateFn, ok := migrations[v]
		if !ok {
			return fmt.Errorf("missing migration for version %d", v)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d transaction: %w", v, err)
		}

		if err := migrateFn(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", v, err)
		}

		if _, err := tx.Exec(
			`UPDATE meta SET value = ? WHERE key = 'schema_version'`,
			strconv.Itoa(v),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating schema version to %d: %w", v, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", v, err)
		}
	}

	return nil
}
