package pgledger

import (
	"context"
	"database/sql"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/hlop3z/pgledger/internal/alerr"
	"github.com/hlop3z/pgledger/internal/catalog"
	"github.com/hlop3z/pgledger/internal/executor"
	"github.com/hlop3z/pgledger/internal/ledger"
	"github.com/hlop3z/pgledger/internal/observability"
)

// ZeroTarget rolls back every applied migration.
const ZeroTarget = "zero"

// Down rolls back every applied version strictly after target, newest first.
// Pass ZeroTarget to roll back everything.
//
// target must be "zero", a bare version (it need not exist) or a full id
// known to the catalog or the ledger. Processing stops at the first failure or the first migration
// without a down script; earlier rollbacks stay committed.
//
// Steps(n) caps how many migrations are reverted and DryRun() reports the
// plan only. Target() is ignored.
func (c *Client) Down(ctx context.Context, target string, opts ...MigrationOption) (*DownResult, error) {
	cfg := applyMigrationOptions(opts)
	runID := uuid.NewString()
	logger := observability.WithRun(c.logger, runID).With("operation", "down", "target", target)
	result := &DownResult{RunID: runID, DryRun: cfg.DryRun, Target: target}

	if strings.TrimSpace(target) == "" {
		return result, alerr.New(alerr.ErrConfigInvalid, "down requires a target").
			WithHelp("pass a version, or 'zero' to roll back everything")
	}

	err := c.withLock(ctx, logger, func(conn *sql.Conn) error {
		l := ledger.New(conn)
		if !cfg.DryRun {
			if err := l.EnsureTable(ctx); err != nil {
				return err
			}
		}
		entries, err := l.All(ctx)
		if err != nil {
			return err
		}
		cat, err := catalog.Load(c.config.MigrationsDir)
		if err != nil {
			return err
		}

		plan, err := planDown(cat, entries, target, cfg)
		if err != nil {
			return err
		}
		for _, m := range plan {
			result.Planned = append(result.Planned, toMigration(m))
		}

		if len(plan) == 0 {
			logger.Info("nothing to roll back")
			return nil
		}
		if cfg.DryRun {
			logger.Info("dry run", "planned", len(plan))
			return nil
		}

		ex := executor.New(conn, executor.Options{
			AppliedBy:        c.config.AppliedBy,
			StatementTimeout: c.config.Timeout,
		})
		for _, m := range plan {
			mlog := observability.WithMigration(logger, m.Version, m.Name, catalog.Down.String())
			mlog.Info("reverting migration")

			elapsed, err := ex.Revert(ctx, m)
			if err != nil {
				c.metrics.IncMigration(catalog.Down.String(), "failed")
				mlog.Error("rollback failed", "error", err)
				return wrapMigrationError(err, m.Version, m.Name, catalog.Down.String())
			}

			c.metrics.IncMigration(catalog.Down.String(), "reverted")
			c.metrics.ObserveDuration(catalog.Down.String(), elapsed)
			mlog.Info("migration reverted", "duration_ms", elapsed.Milliseconds())
			result.Reverted = append(result.Reverted, toMigration(m))
		}
		return nil
	})

	c.metrics.IncRun("down", outcome(err))
	if err != nil {
		return result, err
	}
	logger.Info("down finished", "reverted", len(result.Reverted), "dry_run", cfg.DryRun)
	return result, nil
}

// planDown selects applied versions strictly after target, descending.
// An applied version whose files are gone is planned with no paths so that
// the executor reports the missing down script when it is reached.
func planDown(cat *catalog.Catalog, entries []ledger.Entry, target string, cfg *MigrationConfig) ([]catalog.Migration, error) {
	floor := ""
	if target != ZeroTarget {
		applied := make(map[string]ledger.Entry, len(entries))
		for _, e := range entries {
			applied[e.Version] = e
		}
		v, ok := resolveTarget(target, cat, applied)
		if !ok {
			return nil, alerr.NewUnknownTargetError(target, knownVersions(cat, applied))
		}
		floor = v
	}

	var plan []catalog.Migration
	for _, e := range slices.Backward(entries) {
		if floor != "" && e.Version <= floor {
			break
		}
		m, ok := cat.Get(e.Version)
		if !ok {
			m = catalog.Migration{Version: e.Version, Name: e.Name}
		}
		plan = append(plan, m)
		if cfg.Steps > 0 && len(plan) == cfg.Steps {
			break
		}
	}
	return plan, nil
}
