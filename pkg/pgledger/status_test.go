package pgledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hlop3z/pgledger/internal/testutil"
)

func TestStatus_AppliedAndPending(t *testing.T) {
	env := newTestEnv(t)
	testutil.StandardMigrations(t, env.dir)
	ctx := context.Background()

	_, err := env.client.Up(ctx, Steps(2))
	testutil.AssertNoError(t, err)

	report, err := env.client.Status(ctx)
	testutil.AssertNoError(t, err)

	if report.Applied != 2 || report.Pending != 1 || report.Missing != 0 {
		t.Errorf("counts = %d/%d/%d", report.Applied, report.Pending, report.Missing)
	}
	wantStates := []State{StateApplied, StateApplied, StatePending}
	for i, s := range report.Migrations {
		if s.State != wantStates[i] {
			t.Errorf("migrations[%d].State = %s, want %s", i, s.State, wantStates[i])
		}
		if (s.AppliedAt != nil) != (s.State == StateApplied) {
			t.Errorf("migrations[%d].AppliedAt = %v", i, s.AppliedAt)
		}
	}
}

func TestStatus_ReportsMissingFiles(t *testing.T) {
	env := newTestEnv(t)
	testutil.StandardMigrations(t, env.dir)
	ctx := context.Background()

	_, err := env.client.Up(ctx)
	testutil.AssertNoError(t, err)

	testutil.RemoveFile(t, filepath.Join(env.dir, "20240102_120000_second_up.sql"))
	testutil.RemoveFile(t, filepath.Join(env.dir, "20240102_120000_second_down.sql"))

	report, err := env.client.Status(ctx)
	testutil.AssertNoError(t, err)

	if report.Missing != 1 || report.Applied != 2 {
		t.Fatalf("counts = applied %d, missing %d", report.Applied, report.Missing)
	}
	if len(report.Migrations) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(report.Migrations))
	}
	second := report.Migrations[1]
	if second.Version != "20240102_120000" || second.State != StateMissing || second.Name != "second" {
		t.Errorf("second = %+v", second)
	}
}

func TestStatus_NoLedgerTable(t *testing.T) {
	env := newTestEnv(t)
	testutil.StandardMigrations(t, env.dir)

	report, err := env.client.Status(context.Background())
	testutil.AssertNoError(t, err)

	if report.Pending != 3 || report.Applied != 0 {
		t.Errorf("counts = %d applied, %d pending", report.Applied, report.Pending)
	}
	testutil.AssertTableNotExists(t, env.db, "schema_migrations")
}

func TestStatus_MissingDirectory(t *testing.T) {
	env := newTestEnv(t, WithMigrationsDir(filepath.Join(t.TempDir(), "absent")))

	_, err := env.client.Status(context.Background())
	if !IsConfigError(err) {
		t.Fatalf("Status() error = %v, want config error", err)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	testutil.StandardMigrations(t, env.dir)
	ctx := context.Background()

	_, err := env.client.Up(ctx)
	testutil.AssertNoError(t, err)

	rows, err := env.client.History(ctx, 0)
	testutil.AssertNoError(t, err)
	if len(rows) != 3 || rows[0].Version != "20240103_120000" || rows[2].Version != "20240101_120000" {
		t.Errorf("history = %+v", rows)
	}

	limited, err := env.client.History(ctx, 2)
	testutil.AssertNoError(t, err)
	if len(limited) != 2 || limited[0].Version != "20240103_120000" {
		t.Errorf("limited history = %+v", limited)
	}
	for _, r := range rows {
		if r.AppliedAt.IsZero() || r.AppliedBy != "tester" {
			t.Errorf("row = %+v", r)
		}
	}
}

func TestHistory_Empty(t *testing.T) {
	env := newTestEnv(t)

	rows, err := env.client.History(context.Background(), 10)
	testutil.AssertNoError(t, err)
	if len(rows) != 0 {
		t.Errorf("expected no history, got %+v", rows)
	}
}

func TestPending(t *testing.T) {
	env := newTestEnv(t)
	testutil.StandardMigrations(t, env.dir)
	ctx := context.Background()

	pending, err := env.client.Pending(ctx)
	testutil.AssertNoError(t, err)
	if len(pending) != 3 {
		t.Fatalf("pending = %+v", pending)
	}

	_, err = env.client.Up(ctx, Target("20240101_120000"))
	testutil.AssertNoError(t, err)

	pending, err = env.client.Pending(ctx)
	testutil.AssertNoError(t, err)
	if len(pending) != 2 || pending[0].ID() != "20240102_120000_second" || !pending[0].HasDown {
		t.Errorf("pending = %+v", pending)
	}
}

func TestNewMigration(t *testing.T) {
	env := newTestEnv(t)

	m, err := env.client.NewMigration("Create Orders")
	testutil.AssertNoError(t, err)
	if m.Name != "create_orders" || !m.HasDown || len(m.Version) != len("20060102_150405") {
		t.Errorf("migration = %+v", m)
	}

	for _, suffix := range []string{"_up.sql", "_down.sql"} {
		data, err := os.ReadFile(filepath.Join(env.dir, m.ID()+suffix))
		testutil.AssertNoError(t, err)
		if !strings.HasPrefix(string(data), "-- "+m.ID()) {
			t.Errorf("%s header = %q", suffix, data)
		}
	}

	pending, err := env.client.Pending(context.Background())
	testutil.AssertNoError(t, err)
	if len(pending) != 1 || pending[0].Version != m.Version {
		t.Errorf("pending = %+v", pending)
	}
}

func TestNewMigration_InvalidName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.NewMigration("!!!")
	if !IsConfigError(err) {
		t.Fatalf("NewMigration() error = %v", err)
	}
}
