package executor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hlop3z/pgledger/internal/alerr"
	"github.com/hlop3z/pgledger/internal/catalog"
	"github.com/hlop3z/pgledger/internal/checksum"
	"github.com/hlop3z/pgledger/internal/ledger"
	"github.com/hlop3z/pgledger/internal/testutil"
)

func loadOne(t *testing.T, dir string) catalog.Migration {
	t.Helper()
	cat, err := catalog.Load(dir)
	testutil.AssertNoError(t, err)
	if len(cat.Migrations) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(cat.Migrations))
	}
	return cat.Migrations[0]
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestApply_RecordsLedgerRow(t *testing.T) {
	db := testutil.SetupSQLite(t)
	ctx := context.Background()
	testutil.AssertNoError(t, ledger.New(db).EnsureTable(ctx))

	dir := testutil.MigrationsDir(t)
	up := "CREATE TABLE users (id INTEGER PRIMARY KEY);"
	testutil.WriteMigration(t, dir, "20240101_120000_create_users", up, "DROP TABLE users;")
	m := loadOne(t, dir)

	ex := New(db, Options{AppliedBy: "alice", Now: fixedNow})
	entry, err := ex.Apply(ctx, m)
	testutil.AssertNoError(t, err)

	if entry.Version != "20240101_120000" || entry.Name != "create_users" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Checksum != checksum.Sum([]byte(up)) {
		t.Errorf("checksum = %s", entry.Checksum)
	}
	if entry.AppliedBy != "alice" || !entry.AppliedAt.Equal(fixedNow()) {
		t.Errorf("entry = %+v", entry)
	}
	if entry.ExecutionTimeMs < 0 {
		t.Errorf("ExecutionTimeMs = %d", entry.ExecutionTimeMs)
	}

	testutil.AssertTableExists(t, db, "users")
	testutil.AssertLedgerVersions(t, db, "20240101_120000")

	rows, err := ledger.New(db).All(ctx)
	testutil.AssertNoError(t, err)
	if rows[0].Checksum != entry.Checksum || rows[0].AppliedBy != "alice" {
		t.Errorf("stored row = %+v", rows[0])
	}
}

func TestApply_FailureIsAtomic(t *testing.T) {
	db := testutil.SetupSQLite(t)
	ctx := context.Background()
	testutil.AssertNoError(t, ledger.New(db).EnsureTable(ctx))

	dir := testutil.MigrationsDir(t)
	testutil.WriteMigration(t, dir, "20240101_120000_broken",
		"CREATE TABLE partial (id INTEGER);\nINSERT INTO does_not_exist VALUES (1);", "")
	m := loadOne(t, dir)

	_, err := New(db, Options{}).Apply(ctx, m)
	testutil.AssertError(t, err, alerr.ErrMigrationFailed)

	e := err.(*alerr.Error)
	if e.GetContext()["version"] != "20240101_120000" || e.GetContext()["name"] != "broken" {
		t.Errorf("error context = %v", e.GetContext())
	}
	testutil.AssertErrorContains(t, err, "20240101_120000_broken")
	if e.GetCause() == nil {
		t.Error("driver error should be preserved as cause")
	}

	testutil.AssertTableNotExists(t, db, "partial")
	testutil.AssertLedgerVersions(t, db)
}

func TestApply_DuplicateLedgerRowRollsBackSchema(t *testing.T) {
	db := testutil.SetupSQLite(t)
	ctx := context.Background()
	testutil.AssertNoError(t, ledger.New(db).EnsureTable(ctx))

	dir := testutil.MigrationsDir(t)
	testutil.WriteMigration(t, dir, "20240101_120000_first", "CREATE TABLE first (id INTEGER);", "")
	m := loadOne(t, dir)

	// A ledger row already claims the version; the insert fails after the DDL ran.
	testutil.AssertNoError(t, ledger.New(db).Insert(ctx, ledger.Entry{
		Version: m.Version, Name: m.Name, AppliedAt: fixedNow(), Checksum: "x",
	}))

	_, err := New(db, Options{}).Apply(ctx, m)
	testutil.AssertError(t, err, alerr.ErrMigrationFailed)
	testutil.AssertTableNotExists(t, db, "first")
}

func TestRevert_RoundTrip(t *testing.T) {
	db := testutil.SetupSQLite(t)
	ctx := context.Background()
	testutil.AssertNoError(t, ledger.New(db).EnsureTable(ctx))

	dir := testutil.MigrationsDir(t)
	testutil.WriteMigration(t, dir, "20240101_120000_create_users",
		"CREATE TABLE users (id INTEGER PRIMARY KEY);", "DROP TABLE users;")
	m := loadOne(t, dir)

	ex := New(db, Options{})
	_, err := ex.Apply(ctx, m)
	testutil.AssertNoError(t, err)

	elapsed, err := ex.Revert(ctx, m)
	testutil.AssertNoError(t, err)
	if elapsed < 0 {
		t.Errorf("elapsed = %v", elapsed)
	}

	testutil.AssertTableNotExists(t, db, "users")
	testutil.AssertLedgerVersions(t, db)
}

func TestRevert_MissingDownFailsFast(t *testing.T) {
	db := testutil.SetupSQLite(t)
	ctx := context.Background()
	testutil.AssertNoError(t, ledger.New(db).EnsureTable(ctx))

	dir := testutil.MigrationsDir(t)
	testutil.WriteMigration(t, dir, "20240101_120000_first", "CREATE TABLE first (id INTEGER);", "")
	m := loadOne(t, dir)

	ex := New(db, Options{})
	_, err := ex.Apply(ctx, m)
	testutil.AssertNoError(t, err)

	_, err = ex.Revert(ctx, m)
	testutil.AssertError(t, err, alerr.ErrDownFileMissing)
	testutil.AssertErrorContains(t, err, "Down migration file not found")
	if alerr.Is(err, alerr.ErrMigrationFailed) {
		t.Error("missing down file must be reported before any SQL runs")
	}

	testutil.AssertTableExists(t, db, "first")
	testutil.AssertLedgerVersions(t, db, "20240101_120000")
}

func TestRevert_DownFileDeletedAfterLoad(t *testing.T) {
	db := testutil.SetupSQLite(t)
	ctx := context.Background()
	testutil.AssertNoError(t, ledger.New(db).EnsureTable(ctx))

	dir := testutil.MigrationsDir(t)
	testutil.WriteMigration(t, dir, "20240101_120000_first",
		"CREATE TABLE first (id INTEGER);", "DROP TABLE first;")
	m := loadOne(t, dir)

	ex := New(db, Options{})
	_, err := ex.Apply(ctx, m)
	testutil.AssertNoError(t, err)

	testutil.RemoveFile(t, filepath.Join(dir, "20240101_120000_first_down.sql"))

	_, err = ex.Revert(ctx, m)
	testutil.AssertError(t, err, alerr.ErrDownFileMissing)
	testutil.AssertLedgerVersions(t, db, "20240101_120000")
}

func TestRevert_NotInLedgerRollsBack(t *testing.T) {
	db := testutil.SetupSQLite(t)
	ctx := context.Background()
	testutil.AssertNoError(t, ledger.New(db).EnsureTable(ctx))
	testutil.ExecSQL(t, db, "CREATE TABLE first (id INTEGER)")

	dir := testutil.MigrationsDir(t)
	testutil.WriteMigration(t, dir, "20240101_120000_first",
		"CREATE TABLE first (id INTEGER);", "DROP TABLE first;")
	m := loadOne(t, dir)

	_, err := New(db, Options{}).Revert(ctx, m)
	testutil.AssertError(t, err, alerr.ErrMigrationFailed)
	testutil.AssertError(t, err, alerr.ErrMigrationNotFound)

	// The DROP ran inside the transaction and must have been undone.
	testutil.AssertTableExists(t, db, "first")
}
