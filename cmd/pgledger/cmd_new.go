package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hlop3z/pgledger/internal/cli"
	"github.com/hlop3z/pgledger/internal/report"
	"github.com/hlop3z/pgledger/pkg/pgledger"
)

// newCmd scaffolds an empty migration pair. It needs no database.
func (a *app) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "new <name>",
		Short:   "Create an empty up/down migration pair",
		Example: `  pgledger new create_users`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config(cmd, false)
			if err != nil {
				return err
			}

			m, err := pgledger.CreateMigration(cfg.MigrationsDir, strings.Join(args, " "))
			if err != nil {
				return err
			}

			if cli.Default().IsJSON() {
				return cli.WriteJSON(a.stdout, m)
			}
			report.Created(a.stdout, m, cfg.MigrationsDir)
			return nil
		},
	}
}
