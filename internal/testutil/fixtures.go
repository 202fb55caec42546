package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// MigrationsDir returns an empty temporary migrations directory.
func MigrationsDir(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "migrations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create migrations dir: %v", err)
	}
	return dir
}

// WriteMigration writes {id}_up.sql and, when down is non-empty,
// {id}_down.sql into dir. id is the full prefix, e.g. "20240101_120000_first".
//
// Example:
//
//	testutil.WriteMigration(t, dir, "20240101_120000_first",
//	    "CREATE TABLE first (id INTEGER);",
//	    "DROP TABLE first;")
func WriteMigration(t *testing.T, dir, id, up, down string) {
	t.Helper()

	WriteFile(t, filepath.Join(dir, id+"_up.sql"), up)
	if down != "" {
		WriteFile(t, filepath.Join(dir, id+"_down.sql"), down)
	}
}

// WriteFile writes content to path, failing the test on error.
// Used both to create fixtures and to simulate edits of applied scripts.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// RemoveFile deletes path, failing the test on error.
func RemoveFile(t *testing.T, path string) {
	t.Helper()

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove %s: %v", path, err)
	}
}

// StandardMigrations writes the three-migration fixture used across tests:
// first, second and third each create and drop a table of the same name.
func StandardMigrations(t *testing.T, dir string) []string {
	t.Helper()

	ids := []string{
		"20240101_120000_first",
		"20240102_120000_second",
		"20240103_120000_third",
	}
	for _, id := range ids {
		name := id[len("20240101_120000_"):]
		WriteMigration(t, dir, id,
			"CREATE TABLE "+name+" (id INTEGER PRIMARY KEY);",
			"DROP TABLE "+name+";")
	}
	return []string{"20240101_120000", "20240102_120000", "20240103_120000"}
}
