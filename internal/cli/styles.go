package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Badge styles for migration states.
var (
	badgeApplied = lipgloss.NewStyle().
			Background(colorSuccess).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1).
			Bold(true)

	badgePending = lipgloss.NewStyle().
			Background(colorWarning).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1).
			Bold(true)

	badgeReverted = lipgloss.NewStyle().
			Background(colorPrimary).
			Foreground(colorWhite).
			Padding(0, 1).
			Bold(true)

	badgeError = lipgloss.NewStyle().
			Background(colorError).
			Foreground(colorWhite).
			Padding(0, 1).
			Bold(true)
)

var titleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorWhite).
	Background(colorPrimary).
	Padding(0, 2)

// RenderBadge renders a styled badge, or "[TEXT]" without colors.
func RenderBadge(text string, style lipgloss.Style) string {
	if !EnableColors() {
		return "[" + text + "]"
	}
	return style.Render(text)
}

// RenderAppliedBadge renders an "applied" state badge.
func RenderAppliedBadge() string {
	return RenderBadge("APPLIED", badgeApplied)
}

// RenderPendingBadge renders a "pending" state badge.
func RenderPendingBadge() string {
	return RenderBadge("PENDING", badgePending)
}

// RenderRevertedBadge renders a badge for a migration rolled back by this run.
func RenderRevertedBadge() string {
	return RenderBadge("REVERTED", badgeReverted)
}

// RenderMissingBadge renders a badge for ledger rows with no files on disk.
func RenderMissingBadge() string {
	return RenderBadge("MISSING", badgeError)
}

// RenderDriftBadge renders a badge for a changed applied script.
func RenderDriftBadge() string {
	return RenderBadge("DRIFT", badgeError)
}

// RenderTitle renders a section title.
func RenderTitle(text string) string {
	if !EnableColors() {
		return "=== " + text + " ==="
	}
	return titleStyle.Render(text)
}

// KeyValue renders "key: value" with a muted key.
func KeyValue(key, value string) string {
	return fmt.Sprintf("%s %s", Dim(key+":"), value)
}

// FormatCount formats a count with singular/plural form.
func FormatCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// Table renders aligned columns. Cells may carry ANSI styling.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow adds a row, padding missing cells.
func (t *Table) AddRow(cells ...string) {
	for len(cells) < len(t.headers) {
		cells = append(cells, "")
	}
	for i, cell := range cells {
		if i < len(t.widths) {
			t.widths[i] = max(t.widths[i], lipgloss.Width(cell))
		}
	}
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// String renders the table. Trailing spaces are trimmed from every line.
func (t *Table) String() string {
	if len(t.headers) == 0 {
		return ""
	}

	var b strings.Builder
	writeLine := func(cells []string, style func(string) string) {
		var line strings.Builder
		for i, cell := range cells {
			if i >= len(t.widths) {
				break
			}
			if i > 0 {
				line.WriteString("  ")
			}
			line.WriteString(style(padRight(cell, t.widths[i])))
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteString("\n")
	}

	writeLine(t.headers, Header)
	seps := make([]string, len(t.widths))
	for i, w := range t.widths {
		seps[i] = strings.Repeat("-", w)
	}
	writeLine(seps, Dim)
	for _, row := range t.rows {
		writeLine(row, func(s string) string { return s })
	}
	return b.String()
}

// padRight pads s to width visible cells.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
