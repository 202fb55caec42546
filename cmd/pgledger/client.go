package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hlop3z/pgledger/internal/observability"
	"github.com/hlop3z/pgledger/pkg/pgledger"
)

// config resolves configuration for cmd.
func (a *app) config(cmd *cobra.Command, requireDB bool) (*Config, error) {
	return loadConfig(&a.flags, cmd.Flags().Changed, requireDB)
}

// newClient builds a connected client from the resolved configuration.
func (a *app) newClient(cmd *cobra.Command) (*pgledger.Client, *Config, error) {
	cfg, err := a.config(cmd, true)
	if err != nil {
		return nil, nil, err
	}

	logger, err := observability.NewLogger(cfg.LogFormat, cfg.LogLevel, a.stderr)
	if err != nil {
		return nil, nil, err
	}

	opts := []pgledger.Option{
		pgledger.WithDatabaseURL(cfg.DatabaseURL),
		pgledger.WithMigrationsDir(cfg.MigrationsDir),
		pgledger.WithLogger(logger),
	}
	if cfg.AppliedBy != "" {
		opts = append(opts, pgledger.WithAppliedBy(cfg.AppliedBy))
	}
	if cfg.LockKey != "" {
		opts = append(opts, pgledger.WithLockKey(cfg.LockKey))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, pgledger.WithTimeout(cfg.Timeout))
	}
	if a.flags.metricsTextfile != "" {
		a.registry = prometheus.NewRegistry()
		opts = append(opts, pgledger.WithMetrics(a.registry))
	}

	client, err := pgledger.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}
