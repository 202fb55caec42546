package pgledger

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hlop3z/pgledger/internal/alerr"
	"github.com/hlop3z/pgledger/internal/catalog"
	"github.com/hlop3z/pgledger/internal/executor"
	"github.com/hlop3z/pgledger/internal/ledger"
	"github.com/hlop3z/pgledger/internal/observability"
)

// Up applies pending migrations in ascending version order.
//
// Processing stops at the first failure. Migrations committed before the
// failure stay committed; the failing one leaves no trace.
//
// Options:
//   - Target(version): apply only versions <= version
//   - Steps(n): apply at most n migrations
//   - DryRun(): report the plan without executing SQL
//
// Calling Up with nothing pending is a no-op.
func (c *Client) Up(ctx context.Context, opts ...MigrationOption) (*UpResult, error) {
	cfg := applyMigrationOptions(opts)
	runID := uuid.NewString()
	logger := observability.WithRun(c.logger, runID).With("operation", "up")
	result := &UpResult{RunID: runID, DryRun: cfg.DryRun}

	err := c.withLock(ctx, logger, func(conn *sql.Conn) error {
		l := ledger.New(conn)
		if !cfg.DryRun {
			if err := l.EnsureTable(ctx); err != nil {
				return err
			}
		}
		applied, err := l.AppliedSet(ctx)
		if err != nil {
			return err
		}
		cat, err := catalog.Load(c.config.MigrationsDir)
		if err != nil {
			return err
		}

		pending, err := planUp(cat, applied, cfg)
		if err != nil {
			return err
		}
		for _, m := range pending {
			result.Planned = append(result.Planned, toMigration(m))
		}

		if len(pending) == 0 {
			logger.Info("no pending migrations")
			return nil
		}
		if cfg.DryRun {
			logger.Info("dry run", "pending", len(pending))
			return nil
		}

		ex := executor.New(conn, executor.Options{
			AppliedBy:        c.config.AppliedBy,
			StatementTimeout: c.config.Timeout,
		})
		for _, m := range pending {
			mlog := observability.WithMigration(logger, m.Version, m.Name, catalog.Up.String())
			mlog.Info("applying migration")

			entry, err := ex.Apply(ctx, m)
			if err != nil {
				c.metrics.IncMigration(catalog.Up.String(), "failed")
				mlog.Error("migration failed", "error", err)
				return wrapMigrationError(err, m.Version, m.Name, catalog.Up.String())
			}

			c.metrics.IncMigration(catalog.Up.String(), "applied")
			c.metrics.ObserveDuration(catalog.Up.String(), time.Duration(entry.ExecutionTimeMs)*time.Millisecond)
			mlog.Info("migration applied", "duration_ms", entry.ExecutionTimeMs, "checksum", entry.Checksum)
			result.Applied = append(result.Applied, toLedgerEntry(entry))
		}
		return nil
	})

	c.metrics.IncRun("up", outcome(err))
	if err != nil {
		// result still lists what was committed before the failure.
		return result, err
	}
	logger.Info("up finished", "applied", len(result.Applied), "dry_run", cfg.DryRun)
	return result, nil
}

// planUp selects the pending set: catalog versions without a ledger row,
// ascending, bounded by the target and step count.
func planUp(cat *catalog.Catalog, applied map[string]ledger.Entry, cfg *MigrationConfig) ([]catalog.Migration, error) {
	limit := ""
	if cfg.Target != "" {
		v, ok := resolveTarget(cfg.Target, cat, applied)
		if !ok {
			return nil, alerr.NewUnknownTargetError(cfg.Target, knownVersions(cat, applied))
		}
		limit = v
	}

	var pending []catalog.Migration
	for _, m := range cat.List(catalog.Up) {
		if _, done := applied[m.Version]; done {
			continue
		}
		if limit != "" && m.Version > limit {
			break
		}
		pending = append(pending, m)
		if cfg.Steps > 0 && len(pending) == cfg.Steps {
			break
		}
	}
	return pending, nil
}

// resolveTarget maps a target to the version bound it names. An id or
// version known to the catalog or the ledger resolves to that version; any
// other bare version is used as-is, so a cutoff may fall between migrations.
func resolveTarget(target string, cat *catalog.Catalog, applied map[string]ledger.Entry) (string, bool) {
	if v, ok := cat.Resolve(target); ok {
		return v, true
	}
	if _, ok := applied[target]; ok {
		return target, true
	}
	for v, e := range applied {
		if e.Name != "" && v+"_"+e.Name == target {
			return v, true
		}
	}
	if catalog.IsVersion(target) {
		return target, true
	}
	return "", false
}

func knownVersions(cat *catalog.Catalog, applied map[string]ledger.Entry) []string {
	known := cat.Versions()
	for v := range applied {
		if _, ok := cat.Get(v); !ok {
			known = append(known, v)
		}
	}
	slices.Sort(known)
	return known
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case alerr.Is(err, alerr.ErrLockNotAcquired):
		return "locked"
	default:
		return "error"
	}
}
