package main

import (
	"github.com/spf13/cobra"

	"github.com/hlop3z/pgledger/internal/cli"
	"github.com/hlop3z/pgledger/internal/report"
	"github.com/hlop3z/pgledger/pkg/pgledger"
)

// upCmd applies pending migrations.
func (a *app) upCmd() *cobra.Command {
	var target string
	var steps int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Long: `Apply pending migrations in ascending version order, each in its own transaction.

The first failure stops the run; migrations committed before it stay applied.`,
		Example: `  # Apply everything pending
  pgledger up

  # Apply up to and including one version
  pgledger up --target 20240102_120000

  # Show what would run
  pgledger up --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			var opts []pgledger.MigrationOption
			if target != "" {
				opts = append(opts, pgledger.Target(target))
			}
			if steps > 0 {
				opts = append(opts, pgledger.Steps(steps))
			}
			if dryRun {
				opts = append(opts, pgledger.DryRun())
			}

			res, err := client.Up(cmd.Context(), opts...)
			a.printUp(res, err)
			return err
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Apply versions up to and including this one")
	cmd.Flags().IntVar(&steps, "steps", 0, "Apply at most this many migrations (0 = all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without executing it")

	return cmd
}

// printUp reports a run, including the part committed before a failure.
func (a *app) printUp(res *pgledger.UpResult, err error) {
	if res == nil {
		return
	}
	if cli.Default().IsJSON() {
		if err == nil || len(res.Applied) > 0 {
			_ = cli.WriteJSON(a.stdout, res)
		}
		return
	}
	if err != nil {
		report.AppliedLines(a.stdout, res.Applied)
		return
	}
	report.Up(a.stdout, res)
}
