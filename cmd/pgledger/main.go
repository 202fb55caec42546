// Package main provides the pgledger command-line runner.
//
// Usage:
//
//	pgledger up [--target V] [--steps N] [--dry-run]   # Apply pending migrations
//	pgledger down <target|zero> [--steps N] [--dry-run] # Roll back above target
//	pgledger status [--exit-code]                       # Applied/pending/missing
//	pgledger history [--limit N]                        # Ledger rows, newest first
//	pgledger pending                                    # Versions not yet applied
//	pgledger verify                                     # Checksum drift check
//	pgledger new <name>                                 # Scaffold an up/down pair
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hlop3z/pgledger/internal/cli"
	"github.com/hlop3z/pgledger/internal/observability"
)

// version is set via ldflags during build: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// app carries the per-process state shared by commands.
type app struct {
	flags    globalFlags
	stdout   io.Writer
	stderr   io.Writer
	registry *prometheus.Registry
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	// An interrupt cancels the current statement; the transaction rolls back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if werr := a.writeMetrics(); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return a.handleError(err)
	}
	return exitOK
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pgledger",
		Short:         "Transactional SQL migration runner for PostgreSQL",
		Long:          `pgledger applies versioned SQL migration files to PostgreSQL, one transaction per migration, recording every change in the schema_migrations ledger under an advisory lock.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			mode := cli.DefaultConfig().Mode
			if a.flags.json {
				mode = cli.ModeJSON
			}
			cli.SetDefault(&cli.Config{Mode: mode, Writer: a.stdout})
		},
	}

	registerGlobalFlags(root.PersistentFlags(), &a.flags)

	root.AddCommand(
		a.upCmd(),
		a.downCmd(),
		a.statusCmd(),
		a.historyCmd(),
		a.pendingCmd(),
		a.verifyCmd(),
		a.newCmd(),
	)
	return root
}

// writeMetrics dumps the run's metrics when --metrics-textfile is set.
func (a *app) writeMetrics() error {
	if a.flags.metricsTextfile == "" || a.registry == nil {
		return nil
	}
	return observability.WriteTextfile(a.flags.metricsTextfile, a.registry)
}
