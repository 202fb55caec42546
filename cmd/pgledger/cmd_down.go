package main

import (
	"github.com/spf13/cobra"

	"github.com/hlop3z/pgledger/internal/cli"
	"github.com/hlop3z/pgledger/internal/report"
	"github.com/hlop3z/pgledger/pkg/pgledger"
)

// downCmd rolls back applied migrations above a target.
func (a *app) downCmd() *cobra.Command {
	var steps int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "down <target>",
		Short: "Roll back migrations applied after target",
		Long: `Roll back every applied version strictly greater than target, newest first.

Use "zero" as the target to roll back everything. A migration without a
down script stops the run.`,
		Example: `  # Roll back everything after one version
  pgledger down 20240102_120000

  # Roll back everything
  pgledger down zero

  # Roll back only the newest migration
  pgledger down zero --steps 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			var opts []pgledger.MigrationOption
			if steps > 0 {
				opts = append(opts, pgledger.Steps(steps))
			}
			if dryRun {
				opts = append(opts, pgledger.DryRun())
			}

			res, err := client.Down(cmd.Context(), args[0], opts...)
			a.printDown(res, err)
			return err
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "Roll back at most this many migrations (0 = all above target)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without executing it")

	return cmd
}

func (a *app) printDown(res *pgledger.DownResult, err error) {
	if res == nil {
		return
	}
	if cli.Default().IsJSON() {
		if err == nil || len(res.Reverted) > 0 {
			_ = cli.WriteJSON(a.stdout, res)
		}
		return
	}
	if err != nil {
		report.RevertedLines(a.stdout, res.Reverted)
		return
	}
	report.Down(a.stdout, res)
}
