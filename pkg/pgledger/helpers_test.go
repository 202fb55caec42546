package pgledger

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hlop3z/pgledger/internal/lock"
	"github.com/hlop3z/pgledger/internal/observability"
	"github.com/hlop3z/pgledger/internal/testutil"
)

// testEnv is a Client backed by SQLite and an in-process locker.
type testEnv struct {
	client *Client
	db     *sql.DB
	dir    string
	locker *lock.Memory
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	db := testutil.SetupSQLite(t)
	dir := testutil.MigrationsDir(t)
	locker := lock.NewMemory("test")

	cfg := defaultConfig()
	cfg.MigrationsDir = dir
	cfg.Logger = observability.Discard()
	cfg.AppliedBy = "tester"
	for _, opt := range opts {
		opt(cfg)
	}

	return &testEnv{
		client: newClient(db, locker, cfg),
		db:     db,
		dir:    dir,
		locker: locker,
	}
}

// holdLock takes the run lock as if another runner were active.
func (e *testEnv) holdLock(t *testing.T) func() error {
	t.Helper()

	key, err := e.locker.Key(context.Background(), nil)
	testutil.AssertNoError(t, err)
	release, err := e.locker.TryAcquire(context.Background(), nil, key)
	testutil.AssertNoError(t, err)
	return release
}

func (e *testEnv) assertUnlocked(t *testing.T) {
	t.Helper()

	key, _ := e.locker.Key(context.Background(), nil)
	if e.locker.Held(key) {
		t.Error("migration lock still held after the run")
	}
}

func (e *testEnv) ledgerRows(t *testing.T) []LedgerEntry {
	t.Helper()

	rows, err := e.client.History(context.Background(), 0)
	testutil.AssertNoError(t, err)
	return rows
}
