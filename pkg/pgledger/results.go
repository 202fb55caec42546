package pgledger

import (
	"time"

	"github.com/hlop3z/pgledger/internal/catalog"
	"github.com/hlop3z/pgledger/internal/ledger"
)

// State is the status of one migration version.
type State string

const (
	StateApplied State = "applied"
	StatePending State = "pending"
	// StateMissing marks a ledger row whose files are no longer on disk.
	StateMissing State = "missing"
)

// Migration identifies a migration found on disk.
type Migration struct {
	Version string `json:"version"`
	Name    string `json:"name"`
	HasDown bool   `json:"has_down"`
}

// ID returns the file prefix, e.g. "20240101_120000_create_users".
func (m Migration) ID() string {
	if m.Name == "" {
		return m.Version
	}
	return m.Version + "_" + m.Name
}

// LedgerEntry is one schema_migrations row.
type LedgerEntry struct {
	Version         string    `json:"version"`
	Name            string    `json:"name"`
	AppliedAt       time.Time `json:"applied_at"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	Checksum        string    `json:"checksum"`
	AppliedBy       string    `json:"applied_by"`
}

// UpResult describes one Up call.
type UpResult struct {
	RunID  string `json:"run_id"`
	DryRun bool   `json:"dry_run"`
	// Planned is the pending set selected for this run, ascending.
	Planned []Migration `json:"planned"`
	// Applied holds the rows committed by this run, in order.
	Applied []LedgerEntry `json:"applied"`
}

// DownResult describes one Down call.
type DownResult struct {
	RunID  string `json:"run_id"`
	DryRun bool   `json:"dry_run"`
	Target string `json:"target"`
	// Planned is the set selected for rollback, descending.
	Planned []Migration `json:"planned"`
	// Reverted holds the versions rolled back by this run, in order.
	Reverted []Migration `json:"reverted"`
}

// MigrationStatus is one line of a status report.
type MigrationStatus struct {
	Version   string     `json:"version"`
	Name      string     `json:"name"`
	State     State      `json:"state"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// StatusReport lists every known version with its state, ascending.
type StatusReport struct {
	Migrations []MigrationStatus `json:"migrations"`
	Applied    int               `json:"applied"`
	Pending    int               `json:"pending"`
	Missing    int               `json:"missing"`
}

// ChecksumMismatch is an applied migration whose up script changed on disk.
type ChecksumMismatch struct {
	Version string `json:"version"`
	Name    string `json:"name"`
	Stored  string `json:"stored"`
	Current string `json:"current"`
}

// VerifyReport is the outcome of Verify. Drift is reported, never repaired.
type VerifyReport struct {
	// Verified counts applied versions whose checksum was recomputed.
	Verified   int                `json:"verified"`
	Mismatches []ChecksumMismatch `json:"mismatches"`
	// Missing lists applied versions with no up script on disk.
	Missing []Migration `json:"missing"`
	// Digest is a merkle root over the ledger's (version, checksum) rows.
	Digest string `json:"digest"`
}

// OK reports whether no checksum drift was found.
func (r *VerifyReport) OK() bool {
	return len(r.Mismatches) == 0
}

func toMigration(m catalog.Migration) Migration {
	return Migration{Version: m.Version, Name: m.Name, HasDown: m.HasDown()}
}

func toLedgerEntry(e ledger.Entry) LedgerEntry {
	return LedgerEntry{
		Version:         e.Version,
		Name:            e.Name,
		AppliedAt:       e.AppliedAt,
		ExecutionTimeMs: e.ExecutionTimeMs,
		Checksum:        e.Checksum,
		AppliedBy:       e.AppliedBy,
	}
}
