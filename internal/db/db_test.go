package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

func mustOpen(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustInit(t *testing.T) *sql.DB {
	t.Helper()
	db := mustOpen(t)
	if err := Initialize(db); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return db
}

func TestOpenSetsWALMode(t *testing.T) {
	db := mustOpen(t)

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	// In-memory databases may report "memory" instead of "wal" since WAL
	// requires a file. Accept both.
	if mode != "wal" && mode != "memory" {
		t.Errorf("journal_mode = %q, want wal or memory", mode)
	}
}

func TestOpenSetsForeignKeys(t *testing.T) {
	db := mustOpen(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("querying foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestOpenSetsBusyTimeout(t *testing.T) {
	db := mustOpen(t)

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("querying busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestOpenFileStoreUsesWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ferry.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestOpenRejectsQueryInPath(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "ferry.db?mode=ro")); err == nil {
		t.Error("expected error for a path containing '?', got nil")
	}
}

func TestOpenReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ferry.db")
	rw, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := Initialize(rw); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := SetMeta(rw, MetaProject, "widgets"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	rw.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()

	v, err := SchemaVersion(ro)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema_version = %d, want %d", v, currentSchemaVersion)
	}
	if got, err := GetMeta(ro, MetaProject); err != nil || got != "widgets" {
		t.Errorf("GetMeta = %q, %v; want widgets", got, err)
	}
	if err := SetMeta(ro, MetaProject, "other"); err == nil {
		t.Error("SetMeta on a read-only store: expected error, got nil")
	}
}

func TestInitializeCreatesAllTables(t *testing.T) {
	db := mustInit(t)

	tables := []string{
		"meta", "issues", "comments", "attachments",
		"issue_labels", "issue_milestones", "issue_metadata", "usermap",
	}

	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	db := mustOpen(t)

	if err := Initialize(db); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	if err := Initialize(db); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema_version = %d after double init, want %d", v, currentSchemaVersion)
	}
}

func TestForeignKeyEnforcement(t *testing.T) {
	db := mustInit(t)

	// Try to insert a comment referencing a non-existent issue.
	_, err := db.Exec(
		"INSERT INTO comments (issue_id, created_at, body) VALUES (999, 0, 'test')",
	)
	if err == nil {
		t.Error("expected foreign key violation, got nil")
	}
}

func TestCascadeDeleteIssueRemovesDependents(t *testing.T) {
	db := mustInit(t)

	if _, err := db.Exec("INSERT INTO issues (id, title) VALUES (7, 'test')"); err != nil {
		t.Fatalf("inserting issue: %v", err)
	}
	stmts := []string{
		"INSERT INTO comments (issue_id, created_at, body) VALUES (7, 0, 'a comment')",
		"INSERT INTO attachments (issue_id, name, url) VALUES (7, 'a.txt', 'http://x/a.txt')",
		"INSERT INTO issue_labels (issue_id, label) VALUES (7, 'bug')",
		"INSERT INTO issue_milestones (issue_id, milestone) VALUES (7, 'v1')",
		"INSERT INTO issue_metadata (issue_id, position, name, value) VALUES (7, 0, 'Thanks', 'Bob')",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}

	if _, err := db.Exec("DELETE FROM issues WHERE id = 7"); err != nil {
		t.Fatalf("deleting issue: %v", err)
	}

	for _, table := range []string{"comments", "attachments", "issue_labels", "issue_milestones", "issue_metadata"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("expected 0 rows in %s after cascade delete, got %d", table, count)
		}
	}
}

func TestMigrateNoOpAtLatestVersion(t *testing.T) {
	db := mustInit(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema_version = %d after Migrate, want %d", v, currentSchemaVersion)
	}
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	db := mustInit(t)

	if _, err := db.Exec(`UPDATE meta SET value = '99' WHERE key = 'schema_version'`); err != nil {
		t.Fatalf("bumping version: %v", err)
	}
	if err := Migrate(db); err == nil {
		t.Error("Migrate on a newer schema: expected error, got nil")
	}
}

func TestMetaRoundTrip(t *testing.T) {
	db := mustInit(t)

	if _, err := GetMeta(db, MetaListNextPage); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetMeta on missing key: err = %v, want ErrNotFound", err)
	}
	if err := SetMeta(db, MetaListNextPage, "3"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := SetMeta(db, MetaListNextPage, "4"); err != nil {
		t.Fatalf("SetMeta overwrite: %v", err)
	}
	got, err := GetMeta(db, MetaListNextPage)
	if err != nil || got != "4" {
		t.Errorf("GetMeta = %q, %v; want 4", got, err)
	}
	if err := DeleteMeta(db, MetaListNextPage); err != nil {
		t.Fatalf("DeleteMeta: %v", err)
	}
	if _, err := GetMeta(db, MetaListNextPage); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
}

func TestUserMapLastWins(t *testing.T) {
	db := mustInit(t)

	if err := PutUserMappings(db, []model.UserMapping{
		{SourceID: "alice", TargetID: "alice-old"},
		{SourceID: "bob", TargetID: "bob-gh"},
	}); err != nil {
		t.Fatalf("PutUserMappings: %v", err)
	}
	if err := PutUserMappings(db, []model.UserMapping{{SourceID: "alice", TargetID: "alice-gh"}}); err != nil {
		t.Fatalf("PutUserMappings: %v", err)
	}

	got, err := GetUserMapping(db, "alice")
	if err != nil || got != "alice-gh" {
		t.Errorf("GetUserMapping(alice) = %q, %v; want alice-gh", got, err)
	}
	if _, err := GetUserMapping(db, "carol"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserMapping(carol) err = %v, want ErrNotFound", err)
	}

	all, err := ListUserMappings(db)
	if err != nil {
		t.Fatalf("ListUserMappings: %v", err)
	}
	if len(all) != 2 || all[0].SourceID != "alice" || all[1].SourceID != "bob" {
		t.Errorf("ListUserMappings = %+v", all)
	}
}
