// Package catalog discovers versioned SQL migration scripts on disk.
//
// A migration is a pair of files sharing the prefix {version}_{name}:
//
//	20240101_120000_create_users_up.sql
//	20240101_120000_create_users_down.sql
//
// The version is the run of leading all-digit segments of the prefix, so it
// sorts chronologically as a plain string. The down script is optional at
// discovery time; its absence only matters when a rollback reaches it.
package catalog

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hlop3z/pgledger/internal/alerr"
)

const (
	upSuffix   = "_up.sql"
	downSuffix = "_down.sql"
)

// Direction selects which script of a migration is relevant.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Migration is one discovered migration unit. Files are only ever read.
type Migration struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string // empty when no down script exists
}

// ID returns the file prefix shared by both scripts, e.g. "20240101_120000_create_users".
func (m Migration) ID() string {
	if m.Name == "" {
		return m.Version
	}
	return m.Version + "_" + m.Name
}

// HasDown reports whether a down script exists for this migration.
func (m Migration) HasDown() bool {
	return m.DownPath != ""
}

// ReadUp returns the raw bytes of the up script.
func (m Migration) ReadUp() ([]byte, error) {
	data, err := os.ReadFile(m.UpPath)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrCatalogInvalid, err, "failed to read up migration").
			WithMigration(m.Version, m.Name).
			WithFile(m.UpPath)
	}
	return data, nil
}

// ReadDown returns the raw bytes of the down script, or ErrDownFileMissing.
func (m Migration) ReadDown() ([]byte, error) {
	if !m.HasDown() {
		return nil, alerr.New(alerr.ErrDownFileMissing, "Down migration file not found").
			WithMigration(m.Version, m.Name).
			With("expected", m.ID()+downSuffix)
	}
	data, err := os.ReadFile(m.DownPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, alerr.Wrap(alerr.ErrDownFileMissing, err, "Down migration file not found").
				WithMigration(m.Version, m.Name).
				WithFile(m.DownPath)
		}
		return nil, alerr.Wrap(alerr.ErrCatalogInvalid, err, "failed to read down migration").
			WithMigration(m.Version, m.Name).
			WithFile(m.DownPath)
	}
	return data, nil
}

// Catalog is the ordered set of migrations found in one directory.
// It is rebuilt on every invocation and never cached.
type Catalog struct {
	Dir        string
	Migrations []Migration // ascending by version
}

// Load scans dir and returns its migrations sorted ascending by version.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, alerr.Wrap(alerr.ErrConfigInvalid, err, "migrations directory not found").
				With("path", dir)
		}
		return nil, alerr.Wrap(alerr.ErrCatalogInvalid, err, "failed to read migrations directory").
			With("path", dir)
	}

	byPrefix := make(map[string]*Migration)
	versionOwner := make(map[string]string) // version -> prefix

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filename := entry.Name()
		if !strings.HasSuffix(filename, ".sql") {
			continue
		}

		prefix, kind, ok := splitSuffix(filename)
		if !ok {
			if startsWithDigit(filename) {
				return nil, alerr.New(alerr.ErrCatalogInvalid, "migration file must end in _up.sql or _down.sql").
					WithFile(filepath.Join(dir, filename))
			}
			continue
		}

		version, name, ok := parsePrefix(prefix)
		if !ok {
			return nil, alerr.New(alerr.ErrCatalogInvalid, "migration file has no version prefix").
				WithFile(filepath.Join(dir, filename))
		}

		if owner, seen := versionOwner[version]; seen && owner != prefix {
			return nil, alerr.New(alerr.ErrDuplicateVersion, "duplicate migration version").
				With("version", version).
				With("first", owner).
				With("second", prefix)
		}
		versionOwner[version] = prefix

		m, exists := byPrefix[prefix]
		if !exists {
			m = &Migration{Version: version, Name: name}
			byPrefix[prefix] = m
		}

		path := filepath.Join(dir, filename)
		if kind == Up {
			m.UpPath = path
		} else {
			m.DownPath = path
		}
	}

	migrations := make([]Migration, 0, len(byPrefix))
	for _, m := range byPrefix {
		if m.UpPath == "" {
			return nil, alerr.New(alerr.ErrCatalogInvalid, "down migration has no matching up migration").
				WithMigration(m.Version, m.Name).
				WithFile(m.DownPath)
		}
		migrations = append(migrations, *m)
	}

	slices.SortFunc(migrations, func(a, b Migration) int {
		return strings.Compare(a.Version, b.Version)
	})

	return &Catalog{Dir: dir, Migrations: migrations}, nil
}

// List returns the migrations usable in the given direction, ascending by version.
// For Down that is every migration with a down script.
func (c *Catalog) List(dir Direction) []Migration {
	if dir == Up {
		return slices.Clone(c.Migrations)
	}
	var out []Migration
	for _, m := range c.Migrations {
		if m.HasDown() {
			out = append(out, m)
		}
	}
	return out
}

// Get returns the migration with the given version.
func (c *Catalog) Get(version string) (Migration, bool) {
	i, found := slices.BinarySearchFunc(c.Migrations, version, func(m Migration, v string) int {
		return strings.Compare(m.Version, v)
	})
	if !found {
		return Migration{}, false
	}
	return c.Migrations[i], true
}

// Resolve accepts either a bare version or a full ID ({version}_{name}) and
// returns the version it names.
func (c *Catalog) Resolve(target string) (string, bool) {
	if m, ok := c.Get(target); ok {
		return m.Version, true
	}
	for _, m := range c.Migrations {
		if m.ID() == target {
			return m.Version, true
		}
	}
	return "", false
}

// IsVersion reports whether s is a bare version: one or more all-digit
// segments joined by underscores, e.g. "20240101_120000".
func IsVersion(s string) bool {
	_, name, ok := parsePrefix(s)
	return ok && name == ""
}

// Versions returns all versions in ascending order.
func (c *Catalog) Versions() []string {
	out := make([]string, len(c.Migrations))
	for i, m := range c.Migrations {
		out[i] = m.Version
	}
	return out
}

// splitSuffix strips _up.sql / _down.sql from a filename.
func splitSuffix(filename string) (prefix string, dir Direction, ok bool) {
	switch {
	case strings.HasSuffix(filename, downSuffix):
		return strings.TrimSuffix(filename, downSuffix), Down, true
	case strings.HasSuffix(filename, upSuffix):
		return strings.TrimSuffix(filename, upSuffix), Up, true
	}
	return "", Up, false
}

// parsePrefix splits "20240101_120000_create_users" into
// ("20240101_120000", "create_users"). The version is every leading segment
// made only of digits.
func parsePrefix(prefix string) (version, name string, ok bool) {
	parts := strings.Split(prefix, "_")
	n := 0
	for n < len(parts) && isDigits(parts[n]) {
		n++
	}
	if n == 0 {
		return "", "", false
	}
	return strings.Join(parts[:n], "_"), strings.Join(parts[n:], "_"), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
