// Package lock serializes migration runs across processes with a
// PostgreSQL session-scoped advisory lock.
//
// The lock lives on one pinned *sql.Conn. Every migration transaction of the
// run uses that same session, and if the process dies the server drops the
// session and the lock with it.
package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/hlop3z/pgledger/internal/alerr"
)

// Namespace prefixes every derived key so pgledger never contends with
// unrelated advisory locks taken by applications on the same database.
const Namespace = "pgledger"

// Key identifies one advisory lock. Name is the human readable source of ID.
type Key struct {
	ID   int64
	Name string
}

func (k Key) String() string {
	return fmt.Sprintf("%s (%d)", k.Name, k.ID)
}

// Release gives the lock back. It is safe to call more than once.
type Release func() error

// Locker acquires the run lock on a pinned session.
type Locker interface {
	// Key derives the lock key for the database conn is connected to.
	Key(ctx context.Context, conn *sql.Conn) (Key, error)
	// TryAcquire takes the lock without waiting. A lock held elsewhere is
	// reported as ErrLockNotAcquired.
	TryAcquire(ctx context.Context, conn *sql.Conn, key Key) (Release, error)
}

// NamedKey hashes name into a Key.
func NamedKey(name string) Key {
	return Key{ID: hashToInt64(name), Name: name}
}

// hashToInt64 converts a string key to a non-negative int64 using FNV-1a.
func hashToInt64(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}

// Postgres implements Locker with pg_try_advisory_lock.
type Postgres struct{}

// NewPostgres returns the PostgreSQL advisory locker.
func NewPostgres() *Postgres {
	return &Postgres{}
}

// Key derives the key from current_database() and current_schema(), so two
// runners aimed at the same database and schema contend regardless of the
// host, working directory or spelling of the connection string.
func (p *Postgres) Key(ctx context.Context, conn *sql.Conn) (Key, error) {
	const query = "SELECT current_database(), COALESCE(current_schema(), '')"

	var database, schema string
	if err := conn.QueryRowContext(ctx, query).Scan(&database, &schema); err != nil {
		return Key{}, alerr.WrapSQL(err, "resolve database identity", query).WithDriverDetail(err)
	}
	return NamedKey(Namespace + ":" + database + "." + schema), nil
}

// TryAcquire runs pg_try_advisory_lock on conn. The returned Release unlocks
// on a background context so a cancelled run still gives the lock back.
func (p *Postgres) TryAcquire(ctx context.Context, conn *sql.Conn, key Key) (Release, error) {
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key.ID).Scan(&acquired); err != nil {
		return nil, alerr.WrapSQL(err, "acquire migration lock", "SELECT pg_try_advisory_lock($1)").
			With("lock", key.Name).
			WithDriverDetail(err)
	}
	if !acquired {
		return nil, notAcquired(key)
	}

	var (
		once sync.Once
		rerr error
	)
	release := func() error {
		once.Do(func() {
			var unlocked bool
			err := conn.QueryRowContext(context.Background(), "SELECT pg_advisory_unlock($1)", key.ID).Scan(&unlocked)
			switch {
			case err != nil:
				rerr = alerr.WrapSQL(err, "release migration lock", "SELECT pg_advisory_unlock($1)").
					With("lock", key.Name)
			case !unlocked:
				rerr = alerr.New(alerr.ErrLockNotAcquired, "migration lock was not held at release").
					With("lock", key.Name)
			}
		})
		return rerr
	}
	return release, nil
}

func notAcquired(key Key) *alerr.Error {
	return alerr.New(alerr.ErrLockNotAcquired, "Could not acquire migration lock").
		With("lock", key.Name).
		WithHelp("another pgledger run holds the lock for this database; retry when it finishes")
}

// Memory is an in-process Locker for engines without advisory locks, used by
// tests that run against SQLite. Keys are shared by every caller of one Memory.
type Memory struct {
	mu   sync.Mutex
	held map[int64]bool
	name string
}

// NewMemory returns a Memory locker whose derived key is built from name.
func NewMemory(name string) *Memory {
	return &Memory{held: make(map[int64]bool), name: name}
}

func (m *Memory) Key(_ context.Context, _ *sql.Conn) (Key, error) {
	return NamedKey(Namespace + ":" + m.name), nil
}

func (m *Memory) TryAcquire(_ context.Context, _ *sql.Conn, key Key) (Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held[key.ID] {
		return nil, notAcquired(key)
	}
	m.held[key.ID] = true

	var once sync.Once
	return func() error {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key.ID)
			m.mu.Unlock()
		})
		return nil
	}, nil
}

// Held reports whether key is currently held.
func (m *Memory) Held(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[key.ID]
}
