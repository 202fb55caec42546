package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hlop3z/pgledger/internal/alerr"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// -----------------------------------------------------------------------------
// Load Tests
// -----------------------------------------------------------------------------

func TestLoad_SortsAndPairs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"20240103_120000_third_up.sql":    "SELECT 3;",
		"20240101_120000_first_up.sql":    "SELECT 1;",
		"20240101_120000_first_down.sql":  "SELECT -1;",
		"20240102_120000_second_up.sql":   "SELECT 2;",
		"20240102_120000_second_down.sql": "SELECT -2;",
	})

	cat, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got := cat.Versions()
	want := []string{"20240101_120000", "20240102_120000", "20240103_120000"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Versions() = %v, want %v", got, want)
	}

	first := cat.Migrations[0]
	if first.Name != "first" || first.ID() != "20240101_120000_first" {
		t.Errorf("first = %+v", first)
	}
	if !first.HasDown() {
		t.Error("first should have a down script")
	}
	if cat.Migrations[2].HasDown() {
		t.Error("third has no down script")
	}
}

func TestLoad_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"20240101_120000_first_up.sql": "SELECT 1;",
		"README.md":                    "# notes",
		"seed.sql":                     "SELECT 0;",
	})
	if err := os.Mkdir(filepath.Join(dir, "20240102_120000_nested_up.sql"), 0o755); err != nil {
		t.Fatal(err)
	}

	cat, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cat.Migrations) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(cat.Migrations))
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		code  alerr.Code
	}{
		{
			name:  "missing suffix",
			files: map[string]string{"20240101_120000_first.sql": "SELECT 1;"},
			code:  alerr.ErrCatalogInvalid,
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"20240101_120000_first_up.sql": "SELECT 1;",
				"20240101_120000_other_up.sql": "SELECT 1;",
			},
			code: alerr.ErrDuplicateVersion,
		},
		{
			name:  "down without up",
			files: map[string]string{"20240101_120000_first_down.sql": "SELECT 1;"},
			code:  alerr.ErrCatalogInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files)
			_, err := Load(dir)
			if !alerr.Is(err, tt.code) {
				t.Fatalf("Load() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	if !alerr.Is(err, alerr.ErrConfigInvalid) {
		t.Fatalf("Load() error = %v, want ErrConfigInvalid", err)
	}
}

func TestLoad_EmptyDirectory(t *testing.T) {
	cat, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cat.Migrations) != 0 {
		t.Errorf("expected empty catalog, got %d", len(cat.Migrations))
	}
}

// -----------------------------------------------------------------------------
// Lookup Tests
// -----------------------------------------------------------------------------

func TestCatalog_ResolveAndGet(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"20240101_120000_first_up.sql":  "SELECT 1;",
		"20240102_120000_second_up.sql": "SELECT 2;",
	})
	cat, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, target := range []string{"20240102_120000", "20240102_120000_second"} {
		v, ok := cat.Resolve(target)
		if !ok || v != "20240102_120000" {
			t.Errorf("Resolve(%q) = (%q, %v)", target, v, ok)
		}
	}
	if _, ok := cat.Resolve("20240105_000000"); ok {
		t.Error("Resolve should fail for unknown target")
	}
	if _, ok := cat.Get("20240101_120000"); !ok {
		t.Error("Get should find first")
	}
}

func TestCatalog_ListDown(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"20240101_120000_first_up.sql":   "SELECT 1;",
		"20240101_120000_first_down.sql": "SELECT -1;",
		"20240102_120000_second_up.sql":  "SELECT 2;",
	})
	cat, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(cat.List(Up)); n != 2 {
		t.Errorf("List(Up) = %d, want 2", n)
	}
	down := cat.List(Down)
	if len(down) != 1 || down[0].Version != "20240101_120000" {
		t.Errorf("List(Down) = %+v", down)
	}
}

func TestMigration_ReadDownMissing(t *testing.T) {
	m := Migration{Version: "20240101_120000", Name: "first"}
	_, err := m.ReadDown()
	if !alerr.Is(err, alerr.ErrDownFileMissing) {
		t.Fatalf("ReadDown() error = %v", err)
	}
}

func TestParsePrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		version string
		name    string
		ok      bool
	}{
		{"20240101_120000_create_users", "20240101_120000", "create_users", true},
		{"001_init", "001", "init", true},
		{"20240101", "20240101", "", true},
		{"create_users", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			v, n, ok := parsePrefix(tt.prefix)
			if v != tt.version || n != tt.name || ok != tt.ok {
				t.Errorf("parsePrefix(%q) = (%q, %q, %v)", tt.prefix, v, n, ok)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Scaffold Tests
// -----------------------------------------------------------------------------

func TestCreate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")
	now := time.Date(2024, 3, 5, 14, 30, 0, 0, time.FixedZone("X", 2*3600))

	m, err := Create(dir, "Add Users-Table", now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.Version != "20240305_123000" {
		t.Errorf("Version = %q, want UTC timestamp", m.Version)
	}
	if m.Name != "add_users_table" {
		t.Errorf("Name = %q", m.Name)
	}
	for _, p := range []string{m.UpPath, m.DownPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}

	cat, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Migrations) != 1 || !cat.Migrations[0].HasDown() {
		t.Errorf("created migration not discovered: %+v", cat.Migrations)
	}

	_, err = Create(dir, "another", now)
	if !alerr.Is(err, alerr.ErrDuplicateVersion) {
		t.Errorf("second Create() error = %v, want ErrDuplicateVersion", err)
	}
}

func TestCreate_NumericName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	m, err := Create(dir, "2024 backfill", now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.Version != "20240101_120000" || m.Name != "m_2024_backfill" {
		t.Errorf("Create() = (%q, %q)", m.Version, m.Name)
	}

	cat, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := cat.Versions(); len(got) != 1 || got[0] != m.Version {
		t.Errorf("Load() versions = %v, want [%s]", got, m.Version)
	}

	_, err = Create(dir, "other", now)
	if !alerr.Is(err, alerr.ErrDuplicateVersion) {
		t.Errorf("second Create() error = %v, want ErrDuplicateVersion", err)
	}
}

func TestIsVersion(t *testing.T) {
	tests := map[string]bool{
		"20240101_120000":       true,
		"001":                   true,
		"20240101_120000_first": false,
		"20240101-120000":       false,
		"zero":                  false,
		"":                      false,
	}
	for in, want := range tests {
		if got := IsVersion(in); got != want {
			t.Errorf("IsVersion(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCreate_EmptyName(t *testing.T) {
	_, err := Create(t.TempDir(), "  --  ", time.Now())
	if !alerr.Is(err, alerr.ErrConfigInvalid) {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"create users":    "create_users",
		"Add Users-Table": "add_users_table",
		"  __trim__  ":    "trim",
		"v2 index":        "v2_index",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
