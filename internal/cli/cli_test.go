package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hlop3z/pgledger/internal/alerr"
)

func init() {
	// Plain mode for deterministic output.
	SetDefault(&Config{Mode: ModePlain})
}

func TestOutputMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		tty   bool
		plain bool
		json  bool
	}{
		{"ModeTTY", ModeTTY, true, false, false},
		{"ModePlain", ModePlain, false, true, false},
		{"ModeJSON", ModeJSON, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Mode: tt.mode}
			if cfg.IsTTY() != tt.tty || cfg.IsPlain() != tt.plain || cfg.IsJSON() != tt.json {
				t.Errorf("mode %v: tty=%v plain=%v json=%v", tt.mode, cfg.IsTTY(), cfg.IsPlain(), cfg.IsJSON())
			}
		})
	}
}

func TestDefaultConfig_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	cfg := DefaultConfig()
	if cfg.Mode != ModePlain {
		t.Errorf("NO_COLOR should force plain mode, got %v", cfg.Mode)
	}
	if cfg.Writer == nil {
		t.Error("Writer should default to stdout")
	}
	if NewConfigWithMode(ModeJSON).Mode != ModeJSON {
		t.Error("NewConfigWithMode should keep the requested mode")
	}
}

func TestBadges_PlainMode(t *testing.T) {
	tests := map[string]string{
		RenderAppliedBadge():  "[APPLIED]",
		RenderPendingBadge():  "[PENDING]",
		RenderRevertedBadge(): "[REVERTED]",
		RenderMissingBadge():  "[MISSING]",
		RenderDriftBadge():    "[DRIFT]",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("badge = %q, want %q", got, want)
		}
	}
	if got := RenderTitle("Status"); got != "=== Status ===" {
		t.Errorf("RenderTitle() = %q", got)
	}
}

func TestTable(t *testing.T) {
	table := NewTable("STATE", "VERSION")
	table.AddRow("[APPLIED]", "20240101_120000")
	table.AddRow("[PENDING]")

	want := "STATE      VERSION\n" +
		"---------  ---------------\n" +
		"[APPLIED]  20240101_120000\n" +
		"[PENDING]\n"
	if got := table.String(); got != want {
		t.Errorf("String() =\n%q\nwant\n%q", got, want)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d", table.Len())
	}
}

func TestFormatCount(t *testing.T) {
	if got := FormatCount(1, "migration", "migrations"); got != "1 migration" {
		t.Errorf("got %q", got)
	}
	if got := FormatCount(3, "migration", "migrations"); got != "3 migrations" {
		t.Errorf("got %q", got)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"applied": 2}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"applied\": 2\n}\n" {
		t.Errorf("WriteJSON() = %q", buf.String())
	}
}

func TestFormatError_Coded(t *testing.T) {
	cause := errors.New(`relation "missing" does not exist`)
	err := alerr.Wrap(alerr.ErrMigrationFailed, cause, "migration 20240101_120000_first failed (up)").
		WithMigration("20240101_120000", "first").
		WithSQL("ALTER TABLE missing ADD COLUMN x INTEGER").
		WithHelp("fix the script and run up again")

	out := FormatError(fmt.Errorf("run: %w", err))

	for _, want := range []string{
		"error[E3001]: migration 20240101_120000_first failed (up)",
		"   | version: 20240101_120000",
		"   | name: first",
		`note: cause: relation "missing" does not exist`,
		"help: fix the script and run up again",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "ALTER TABLE") {
		t.Errorf("sql should not be printed\n%s", out)
	}
}

func TestFormatError_Plain(t *testing.T) {
	if got := FormatError(errors.New("boom")); got != "error: boom\n" {
		t.Errorf("FormatError() = %q", got)
	}
	if FormatError(nil) != "" {
		t.Error("nil error should format empty")
	}
}
