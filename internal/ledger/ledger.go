// Package ledger reads and writes the schema_migrations table, the durable
// record of which migrations have been committed to the target schema.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hlop3z/pgledger/internal/alerr"
)

// Ledger table schema (a contract for external tooling, do not change):
//
//	CREATE TABLE schema_migrations (
//	    version           VARCHAR PRIMARY KEY,
//	    name              VARCHAR,
//	    applied_at        TIMESTAMPTZ,
//	    execution_time_ms INTEGER,
//	    checksum          VARCHAR,
//	    applied_by        VARCHAR
//	)

// TableName is the name of the ledger table.
const TableName = "schema_migrations"

const createTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version           VARCHAR PRIMARY KEY,
    name              VARCHAR NOT NULL DEFAULT '',
    applied_at        TIMESTAMPTZ NOT NULL,
    execution_time_ms INTEGER NOT NULL DEFAULT 0 CHECK (execution_time_ms >= 0),
    checksum          VARCHAR NOT NULL,
    applied_by        VARCHAR NOT NULL DEFAULT ''
)`

const selectColumns = "version, name, applied_at, execution_time_ms, checksum, applied_by"

// Entry is one ledger row. Rows are inserted and deleted, never updated.
type Entry struct {
	Version         string
	Name            string
	AppliedAt       time.Time
	ExecutionTimeMs int64
	Checksum        string
	AppliedBy       string
}

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx. Writes are expected
// to go through the *sql.Tx of the migration they belong to.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ledger is a thin accessor bound to one session or transaction.
type Ledger struct {
	q Queryer
}

// New binds a Ledger to q.
func New(q Queryer) *Ledger {
	return &Ledger{q: q}
}

// EnsureTable creates the ledger table if it doesn't exist.
func (l *Ledger) EnsureTable(ctx context.Context) error {
	if _, err := l.q.ExecContext(ctx, createTableSQL); err != nil {
		return alerr.WrapSQL(err, "create ledger table", createTableSQL).
			WithDriverDetail(err)
	}
	return nil
}

// All returns every ledger row ordered by version ascending, byte-wise.
// The sort happens here rather than in SQL because a varchar ORDER BY
// follows the database collation, which may ignore '_'.
// A missing table is reported as an empty ledger.
func (l *Ledger) All(ctx context.Context) ([]Entry, error) {
	query := "SELECT " + selectColumns + " FROM " + TableName
	entries, err := l.query(ctx, "read ledger", query)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Version, b.Version)
	})
	return entries, nil
}

// Recent returns at most limit rows, newest first. A limit <= 0 returns all rows.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT " + selectColumns + " FROM " + TableName + " ORDER BY applied_at DESC, version DESC"
	if limit <= 0 {
		return l.query(ctx, "read ledger history", query)
	}
	return l.query(ctx, "read ledger history", query+" LIMIT $1", limit)
}

// AppliedSet returns the applied versions as a set.
func (l *Ledger) AppliedSet(ctx context.Context) (map[string]Entry, error) {
	entries, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]Entry, len(entries))
	for _, e := range entries {
		set[e.Version] = e
	}
	return set, nil
}

// Insert writes e. Callers pass the migration's transaction so the row
// commits or rolls back together with the schema change.
func (l *Ledger) Insert(ctx context.Context, e Entry) error {
	const query = "INSERT INTO " + TableName +
		" (version, name, applied_at, execution_time_ms, checksum, applied_by) VALUES ($1, $2, $3, $4, $5, $6)"

	_, err := l.q.ExecContext(ctx, query,
		e.Version, e.Name, e.AppliedAt.UTC(), e.ExecutionTimeMs, e.Checksum, e.AppliedBy)
	if err != nil {
		return alerr.WrapSQL(err, "record applied migration", query).
			WithMigration(e.Version, e.Name).
			WithDriverDetail(err)
	}
	return nil
}

// Delete removes the row for version. Deleting a row that does not exist is
// an error: the caller believed the version was applied.
func (l *Ledger) Delete(ctx context.Context, version string) error {
	const query = "DELETE FROM " + TableName + " WHERE version = $1"

	res, err := l.q.ExecContext(ctx, query, version)
	if err != nil {
		return alerr.WrapSQL(err, "remove migration record", query).
			With("version", version).
			WithDriverDetail(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return alerr.WrapSQL(err, "count removed migration records", "")
	}
	if n == 0 {
		return alerr.New(alerr.ErrMigrationNotFound, "migration not found in ledger").
			With("version", version)
	}
	return nil
}

func (l *Ledger) query(ctx context.Context, op, query string, args ...any) ([]Entry, error) {
	rows, err := l.q.QueryContext(ctx, query, args...)
	if err != nil {
		if IsUndefinedTable(err) {
			return nil, nil
		}
		return nil, alerr.WrapSQL(err, op, query).WithDriverDetail(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			name      sql.NullString
			appliedBy sql.NullString
			execTime  sql.NullInt64
			appliedAt any
		)
		if err := rows.Scan(&e.Version, &name, &appliedAt, &execTime, &e.Checksum, &appliedBy); err != nil {
			return nil, alerr.Wrap(alerr.ErrSQLExecution, err, "failed to scan ledger row")
		}
		e.Name = name.String
		e.AppliedBy = appliedBy.String
		e.ExecutionTimeMs = execTime.Int64
		e.AppliedAt = parseAppliedAt(appliedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, alerr.Wrap(alerr.ErrSQLExecution, err, "error iterating ledger rows")
	}
	return entries, nil
}

// IsUndefinedTable reports whether err means the ledger table does not exist yet.
func IsUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	return strings.Contains(err.Error(), "no such table")
}

var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// parseAppliedAt normalises the driver's timestamp representation.
// PostgreSQL returns time.Time; SQLite may return text.
func parseAppliedAt(val any) time.Time {
	switch t := val.(type) {
	case time.Time:
		return t.UTC()
	case string:
		for _, format := range timestampFormats {
			if parsed, err := time.Parse(format, t); err == nil {
				return parsed.UTC()
			}
		}
		return time.Time{}
	case []byte:
		return parseAppliedAt(string(t))
	default:
		return time.Time{}
	}
}
