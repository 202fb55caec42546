package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// SetupSQLite creates a file-backed SQLite database in a temporary directory.
// A file is used instead of :memory: so that every pooled connection and
// pinned *sql.Conn sees the same database.
// The connection is automatically closed when the test completes.
func SetupSQLite(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pgledger.db")
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open sqlite connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("failed to ping sqlite: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// AssertTableExists checks that a table exists in the SQLite database.
func AssertTableExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()

	if !sqliteTableExists(t, db, table) {
		t.Errorf("expected table %q to exist, but it does not", table)
	}
}

// AssertTableNotExists checks that a table does not exist in the SQLite database.
func AssertTableNotExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()

	if sqliteTableExists(t, db, table) {
		t.Errorf("expected table %q to not exist, but it does", table)
	}
}

func sqliteTableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()

	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&n)
	if err != nil {
		t.Fatalf("failed to check if table exists: %v", err)
	}
	return n > 0
}
