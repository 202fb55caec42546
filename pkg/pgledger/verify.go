package pgledger

import (
	"context"
	"slices"
	"strings"

	"github.com/hlop3z/pgledger/internal/checksum"
	"github.com/hlop3z/pgledger/internal/ledger"
)

// Verify recomputes the checksum of the current up script of every applied
// version found on disk and compares it to the ledger. Drift is reported in
// the result, never returned as an error, and nothing is modified.
func (c *Client) Verify(ctx context.Context) (*VerifyReport, error) {
	ctx, cancel := c.readContext(ctx)
	defer cancel()

	cat, applied, err := c.snapshot(ctx)
	if err != nil {
		c.metrics.IncRun("verify", outcome(err))
		return nil, err
	}

	report := &VerifyReport{Mismatches: []ChecksumMismatch{}, Missing: []Migration{}}
	pairs := make([]checksum.Pair, 0, len(applied))

	for _, e := range sortedEntries(applied) {
		pairs = append(pairs, checksum.Pair{Version: e.Version, Checksum: e.Checksum})

		m, ok := cat.Get(e.Version)
		if !ok {
			report.Missing = append(report.Missing, Migration{Version: e.Version, Name: e.Name})
			continue
		}
		content, err := m.ReadUp()
		if err != nil {
			return nil, err
		}
		report.Verified++
		if !checksum.Matches(content, e.Checksum) {
			report.Mismatches = append(report.Mismatches, ChecksumMismatch{
				Version: e.Version,
				Name:    m.Name,
				Stored:  e.Checksum,
				Current: checksum.Sum(content),
			})
		}
	}

	report.Digest, err = checksum.Digest(pairs)
	if err != nil {
		return nil, err
	}

	if len(report.Mismatches) > 0 {
		c.logger.Warn("checksum drift detected", "mismatches", len(report.Mismatches))
		c.metrics.IncRun("verify", "drift")
	} else {
		c.metrics.IncRun("verify", "ok")
	}
	return report, nil
}

func sortedEntries(applied map[string]ledger.Entry) []ledger.Entry {
	out := make([]ledger.Entry, 0, len(applied))
	for _, e := range applied {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b ledger.Entry) int {
		return strings.Compare(a.Version, b.Version)
	})
	return out
}

func sortStatuses(s []MigrationStatus) {
	slices.SortFunc(s, func(a, b MigrationStatus) int {
		return strings.Compare(a.Version, b.Version)
	})
}
