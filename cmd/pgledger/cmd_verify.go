package main

import (
	"github.com/spf13/cobra"

	"github.com/hlop3z/pgledger/internal/cli"
	"github.com/hlop3z/pgledger/internal/report"
)

// verifyCmd compares stored checksums with the scripts on disk.
func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Detect applied migrations whose up script changed",
		Long: `Recompute the checksum of every applied up script and compare it with the
ledger. Nothing is modified. Exits with status 1 when drift is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			r, err := client.Verify(cmd.Context())
			if err != nil {
				return err
			}

			if cli.Default().IsJSON() {
				if err := cli.WriteJSON(a.stdout, r); err != nil {
					return err
				}
			} else {
				report.Verify(a.stdout, r)
			}

			if !r.OK() {
				return &exitError{code: exitFailure}
			}
			return nil
		},
	}
}
