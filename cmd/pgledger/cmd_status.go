package main

import (
	"github.com/spf13/cobra"

	"github.com/hlop3z/pgledger/internal/cli"
	"github.com/hlop3z/pgledger/internal/report"
)

// statusCmd shows applied, pending and missing migrations.
func (a *app) statusCmd() *cobra.Command {
	var exitCode bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied/pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			r, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			if cli.Default().IsJSON() {
				if err := cli.WriteJSON(a.stdout, r); err != nil {
					return err
				}
			} else {
				report.Status(a.stdout, r)
			}

			// Lets CI pipelines detect that migrations are needed.
			if exitCode && r.Pending > 0 {
				return &exitError{code: exitFailure}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with status 1 when migrations are pending")

	return cmd
}

// historyCmd lists ledger rows, newest first.
func (a *app) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show applied migrations with details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if !cmd.Flags().Changed("limit") {
				limit = cfg.HistoryLimit
			}
			entries, err := client.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if cli.Default().IsJSON() {
				return cli.WriteJSON(a.stdout, entries)
			}
			report.History(a.stdout, entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of rows to show (0 = all; default from history_limit)")

	return cmd
}

// pendingCmd lists versions not yet applied.
func (a *app) pendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List migrations not yet applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			pending, err := client.Pending(cmd.Context())
			if err != nil {
				return err
			}

			if cli.Default().IsJSON() {
				return cli.WriteJSON(a.stdout, pending)
			}
			report.Pending(a.stdout, pending)
			return nil
		},
	}
}
