// Package executor applies or reverts a single migration inside its own
// database transaction, keeping the ledger row in lockstep with the schema.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hlop3z/pgledger/internal/alerr"
	"github.com/hlop3z/pgledger/internal/catalog"
	"github.com/hlop3z/pgledger/internal/checksum"
	"github.com/hlop3z/pgledger/internal/ledger"
)

// TxBeginner is satisfied by *sql.Conn and *sql.DB. The runner passes the
// pinned connection that holds the advisory lock.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Options configures an Executor.
type Options struct {
	// AppliedBy is stamped on every ledger row.
	AppliedBy string
	// StatementTimeout bounds the script execution. Zero means no bound.
	StatementTimeout time.Duration
	// Now returns the applied_at timestamp; defaults to time.Now.
	Now func() time.Time
}

// Executor runs one migration per transaction.
type Executor struct {
	db   TxBeginner
	opts Options
}

// New creates an Executor bound to db.
func New(db TxBeginner, opts Options) *Executor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Executor{db: db, opts: opts}
}

// Apply executes the up script and inserts its ledger row in one transaction.
// Either both commit or neither does.
func (e *Executor) Apply(ctx context.Context, m catalog.Migration) (ledger.Entry, error) {
	content, err := m.ReadUp()
	if err != nil {
		return ledger.Entry{}, err
	}

	var entry ledger.Entry
	err = e.inTransaction(ctx, m, catalog.Up, func(tx *sql.Tx) error {
		elapsed, err := e.exec(ctx, tx, content)
		if err != nil {
			return err
		}
		entry = ledger.Entry{
			Version:         m.Version,
			Name:            m.Name,
			AppliedAt:       e.opts.Now().UTC(),
			ExecutionTimeMs: elapsed.Milliseconds(),
			Checksum:        checksum.Sum(content),
			AppliedBy:       e.opts.AppliedBy,
		}
		return ledger.New(tx).Insert(ctx, entry)
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	return entry, nil
}

// Revert executes the down script and deletes the ledger row in one
// transaction. A missing down script fails before any transaction is opened.
func (e *Executor) Revert(ctx context.Context, m catalog.Migration) (time.Duration, error) {
	content, err := m.ReadDown()
	if err != nil {
		return 0, err
	}

	var elapsed time.Duration
	err = e.inTransaction(ctx, m, catalog.Down, func(tx *sql.Tx) error {
		d, err := e.exec(ctx, tx, content)
		if err != nil {
			return err
		}
		elapsed = d
		return ledger.New(tx).Delete(ctx, m.Version)
	})
	if err != nil {
		return 0, err
	}
	return elapsed, nil
}

// inTransaction runs fn inside a transaction, rolling back unless it commits.
// Every failure is reported as a migration failure naming m.
func (e *Executor) inTransaction(ctx context.Context, m catalog.Migration, dir catalog.Direction, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return migrationError(m, dir, alerr.Wrap(alerr.ErrSQLTransaction, err, "failed to begin transaction"))
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return migrationError(m, dir, err)
	}

	if err := tx.Commit(); err != nil {
		return migrationError(m, dir, alerr.Wrap(alerr.ErrSQLTransaction, err, "failed to commit transaction"))
	}
	committed = true
	return nil
}

// exec runs the whole script as one batch and returns the wall-clock time
// spent in the database.
func (e *Executor) exec(ctx context.Context, tx *sql.Tx, script []byte) (time.Duration, error) {
	if e.opts.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.StatementTimeout)
		defer cancel()
	}

	start := time.Now()
	_, err := tx.ExecContext(ctx, string(script))
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, err
	}
	return elapsed, nil
}

func migrationError(m catalog.Migration, dir catalog.Direction, cause error) *alerr.Error {
	return alerr.Wrap(alerr.ErrMigrationFailed, cause, fmt.Sprintf("migration %s failed (%s)", m.ID(), dir)).
		WithMigration(m.Version, m.Name).
		With("direction", dir.String()).
		WithDriverDetail(cause)
}
