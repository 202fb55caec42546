// Package report renders runner results as operator-facing text.
//
// The wording is kept stable so CI logs can be grepped: every migration line
// starts with a state marker ([APPLIED], [PENDING], [REVERTED], [MISSING], [DRIFT]) and
// every report ends with explicit counts.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hlop3z/pgledger/internal/cli"
	"github.com/hlop3z/pgledger/pkg/pgledger"
)

// TimeDisplay is the layout for timestamps in text output. Times are UTC.
const TimeDisplay = "2006-01-02 15:04:05"

// Status writes the status table followed by the counts line.
func Status(w io.Writer, r *pgledger.StatusReport) {
	if len(r.Migrations) == 0 {
		fmt.Fprintln(w, "No migrations found.")
		return
	}

	fmt.Fprintln(w, cli.RenderTitle("Migration Status"))
	fmt.Fprintln(w)

	table := cli.NewTable("STATE", "VERSION", "NAME", "APPLIED AT")
	for _, m := range r.Migrations {
		appliedAt := ""
		if m.AppliedAt != nil {
			appliedAt = formatTime(*m.AppliedAt)
		}
		table.AddRow(stateBadge(m.State), m.Version, m.Name, appliedAt)
	}
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w)

	summary := fmt.Sprintf("%d applied, %d pending", r.Applied, r.Pending)
	if r.Missing > 0 {
		summary += fmt.Sprintf(", %d missing", r.Missing)
	}
	fmt.Fprintln(w, summary)
}

// History writes ledger rows in the order given (newest first).
func History(w io.Writer, entries []pgledger.LedgerEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No migrations applied.")
		return
	}

	fmt.Fprintln(w, cli.RenderTitle("Migration History"))
	fmt.Fprintln(w)

	table := cli.NewTable("VERSION", "NAME", "APPLIED AT", "DURATION", "APPLIED BY", "CHECKSUM")
	for _, e := range entries {
		table.AddRow(
			e.Version,
			e.Name,
			formatTime(e.AppliedAt),
			formatMillis(e.ExecutionTimeMs),
			e.AppliedBy,
			shortChecksum(e.Checksum),
		)
	}
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.FormatCount(len(entries), "entry", "entries"))
}

// Pending writes one [PENDING] line per migration.
func Pending(w io.Writer, migrations []pgledger.Migration) {
	if len(migrations) == 0 {
		fmt.Fprintln(w, "No pending migrations.")
		return
	}
	for _, m := range migrations {
		fmt.Fprintf(w, "%s %s\n", cli.RenderPendingBadge(), m.ID())
	}
	fmt.Fprintln(w, cli.FormatCount(len(migrations), "pending migration", "pending migrations"))
}

// Verify writes each mismatch with both checksums, then missing files,
// the ledger digest and a final OK/FAIL line.
func Verify(w io.Writer, r *pgledger.VerifyReport) {
	for _, mm := range r.Mismatches {
		fmt.Fprintf(w, "%s %s\n", cli.RenderDriftBadge(), mm.Version+"_"+mm.Name)
		fmt.Fprintf(w, "  %s\n", cli.KeyValue("stored ", mm.Stored))
		fmt.Fprintf(w, "  %s\n", cli.KeyValue("current", mm.Current))
	}
	for _, m := range r.Missing {
		fmt.Fprintf(w, "%s %s (no file on disk)\n", cli.RenderMissingBadge(), m.ID())
	}

	fmt.Fprintln(w, cli.KeyValue("verified", cli.FormatCount(r.Verified, "migration", "migrations")))
	fmt.Fprintln(w, cli.KeyValue("digest", r.Digest))

	if r.OK() {
		fmt.Fprintln(w, "OK: no checksum drift")
		return
	}
	fmt.Fprintf(w, "FAIL: %s\n", cli.FormatCount(len(r.Mismatches), "checksum mismatch", "checksum mismatches"))
}

// Up writes the migrations applied by one run, or the plan for a dry run.
func Up(w io.Writer, r *pgledger.UpResult) {
	if len(r.Planned) == 0 {
		fmt.Fprintln(w, "Nothing to apply: database is up to date.")
		return
	}
	if r.DryRun {
		fmt.Fprintf(w, "Dry run: would apply %s\n", cli.FormatCount(len(r.Planned), "migration", "migrations"))
		for _, m := range r.Planned {
			fmt.Fprintf(w, "  -> %s\n", m.ID())
		}
		return
	}

	AppliedLines(w, r.Applied)
	fmt.Fprint(w, cli.FormatSuccess("applied "+cli.FormatCount(len(r.Applied), "migration", "migrations")))
}

// AppliedLines writes one line per committed migration. It is also used on
// its own when a run fails part way.
func AppliedLines(w io.Writer, applied []pgledger.LedgerEntry) {
	for _, e := range applied {
		fmt.Fprintf(w, "%s %s_%s (%s)\n", cli.RenderAppliedBadge(), e.Version, e.Name, formatMillis(e.ExecutionTimeMs))
	}
}

// Down writes the migrations reverted by one run, or the plan for a dry run.
func Down(w io.Writer, r *pgledger.DownResult) {
	if len(r.Planned) == 0 {
		fmt.Fprintf(w, "Nothing to roll back above %s.\n", r.Target)
		return
	}
	if r.DryRun {
		fmt.Fprintf(w, "Dry run: would roll back %s\n", cli.FormatCount(len(r.Planned), "migration", "migrations"))
		for _, m := range r.Planned {
			fmt.Fprintf(w, "  <- %s\n", m.ID())
		}
		return
	}

	RevertedLines(w, r.Reverted)
	fmt.Fprint(w, cli.FormatSuccess("rolled back "+cli.FormatCount(len(r.Reverted), "migration", "migrations")))
}

// RevertedLines writes one line per rolled back migration.
func RevertedLines(w io.Writer, reverted []pgledger.Migration) {
	for _, m := range reverted {
		fmt.Fprintf(w, "%s %s\n", cli.RenderRevertedBadge(), m.ID())
	}
}

// Created writes the paths of a scaffolded migration.
func Created(w io.Writer, m pgledger.Migration, dir string) {
	fmt.Fprint(w, cli.FormatSuccess("created "+m.ID()))
	fmt.Fprintf(w, "  %s/%s_up.sql\n", strings.TrimRight(dir, "/"), m.ID())
	fmt.Fprintf(w, "  %s/%s_down.sql\n", strings.TrimRight(dir, "/"), m.ID())
}

func stateBadge(s pgledger.State) string {
	switch s {
	case pgledger.StateApplied:
		return cli.RenderAppliedBadge()
	case pgledger.StateMissing:
		return cli.RenderMissingBadge()
	default:
		return cli.RenderPendingBadge()
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeDisplay)
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
