package testutil

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/hlop3z/pgledger/internal/alerr"
)

// -----------------------------------------------------------------------------
// Error Assertions
// -----------------------------------------------------------------------------

// AssertError checks that err carries code somewhere in its chain.
func AssertError(t *testing.T, err error, code alerr.Code) {
	t.Helper()

	if err == nil {
		t.Errorf("expected error with code %s, got nil", code)
		return
	}
	if !alerr.Is(err, code) {
		t.Errorf("expected error code %s, got %s\nerror: %v", code, alerr.GetErrorCode(err), err)
	}
}

// AssertNoError fails the test immediately if err is non-nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertErrorContains checks that err's message contains substr.
func AssertErrorContains(t *testing.T, err error, substr string) {
	t.Helper()

	if err == nil {
		t.Errorf("expected error containing %q, got nil", substr)
		return
	}
	if !strings.Contains(err.Error(), substr) {
		t.Errorf("expected error to contain %q, got: %v", substr, err)
	}
}

// -----------------------------------------------------------------------------
// Ledger Assertions
// -----------------------------------------------------------------------------

// LedgerVersions returns the versions in schema_migrations, ascending.
// A missing ledger table yields nil.
func LedgerVersions(t *testing.T, db *sql.DB) []string {
	t.Helper()

	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version ASC")
	if err != nil {
		if strings.Contains(err.Error(), "no such table") || strings.Contains(err.Error(), "does not exist") {
			return nil
		}
		t.Fatalf("failed to read ledger: %v", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("failed to scan ledger row: %v", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("failed to iterate ledger: %v", err)
	}
	return versions
}

// AssertLedgerVersions checks that schema_migrations holds exactly want, in order.
func AssertLedgerVersions(t *testing.T, db *sql.DB, want ...string) {
	t.Helper()

	got := LedgerVersions(t, db)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ledger versions = %v, want %v", got, want)
	}
}

// ExecSQL executes a SQL statement and fails the test on error.
func ExecSQL(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()

	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("failed to execute SQL:\n%s\nerror: %v", query, err)
	}
}
