package pgledger

import (
	"context"
	"time"

	"github.com/hlop3z/pgledger/internal/catalog"
	"github.com/hlop3z/pgledger/internal/ledger"
)

// Read-only operations. None of them takes the lock, creates the ledger
// table or raises on "nothing applied" / "nothing pending".

// Status reports every catalog version as applied or pending, plus ledger
// rows whose files have disappeared as missing, ascending by version.
func (c *Client) Status(ctx context.Context) (*StatusReport, error) {
	ctx, cancel := c.readContext(ctx)
	defer cancel()

	cat, applied, err := c.snapshot(ctx)
	if err != nil {
		c.metrics.IncRun("status", outcome(err))
		return nil, err
	}

	report := &StatusReport{Migrations: []MigrationStatus{}}
	for _, m := range cat.Migrations {
		s := MigrationStatus{Version: m.Version, Name: m.Name, State: StatePending}
		if e, ok := applied[m.Version]; ok {
			s.State = StateApplied
			s.AppliedAt = timePtr(e.AppliedAt)
			report.Applied++
		} else {
			report.Pending++
		}
		report.Migrations = append(report.Migrations, s)
	}
	for _, e := range sortedEntries(applied) {
		if _, ok := cat.Get(e.Version); ok {
			continue
		}
		report.Migrations = append(report.Migrations, MigrationStatus{
			Version:   e.Version,
			Name:      e.Name,
			State:     StateMissing,
			AppliedAt: timePtr(e.AppliedAt),
		})
		report.Missing++
	}
	sortStatuses(report.Migrations)

	c.metrics.IncRun("status", "ok")
	return report, nil
}

// History returns the most recent limit ledger rows, newest first.
// A limit <= 0 returns every row.
func (c *Client) History(ctx context.Context, limit int) ([]LedgerEntry, error) {
	ctx, cancel := c.readContext(ctx)
	defer cancel()

	rows, err := ledger.New(c.db).Recent(ctx, limit)
	if err != nil {
		c.metrics.IncRun("history", outcome(err))
		return nil, err
	}
	out := make([]LedgerEntry, 0, len(rows))
	for _, e := range rows {
		out = append(out, toLedgerEntry(e))
	}
	c.metrics.IncRun("history", "ok")
	return out, nil
}

// Pending returns catalog versions with no ledger row, ascending.
func (c *Client) Pending(ctx context.Context) ([]Migration, error) {
	ctx, cancel := c.readContext(ctx)
	defer cancel()

	cat, applied, err := c.snapshot(ctx)
	if err != nil {
		c.metrics.IncRun("pending", outcome(err))
		return nil, err
	}
	pending, err := planUp(cat, applied, &MigrationConfig{})
	if err != nil {
		return nil, err
	}
	out := make([]Migration, 0, len(pending))
	for _, m := range pending {
		out = append(out, toMigration(m))
	}
	c.metrics.IncRun("pending", "ok")
	return out, nil
}

// NewMigration scaffolds an empty up/down pair named name in the
// migrations directory, versioned with the current UTC time.
func (c *Client) NewMigration(name string) (Migration, error) {
	m, err := CreateMigration(c.config.MigrationsDir, name)
	if err != nil {
		return Migration{}, err
	}
	c.logger.Info("migration created", "version", m.Version, "name", m.Name)
	return m, nil
}

// CreateMigration is NewMigration without a database connection.
func CreateMigration(dir, name string) (Migration, error) {
	m, err := catalog.Create(dir, name, time.Now())
	if err != nil {
		return Migration{}, err
	}
	return toMigration(m), nil
}

// snapshot loads the catalog and the ledger without taking the lock.
func (c *Client) snapshot(ctx context.Context) (*catalog.Catalog, map[string]ledger.Entry, error) {
	cat, err := catalog.Load(c.config.MigrationsDir)
	if err != nil {
		return nil, nil, err
	}
	applied, err := ledger.New(c.db).AppliedSet(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cat, applied, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
