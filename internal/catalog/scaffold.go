package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/hlop3z/pgledger/internal/alerr"
)

// VersionLayout is the time layout used for generated versions.
const VersionLayout = "20060102_150405"

// Create writes an empty up/down pair for a new migration into dir.
// The version is derived from now (UTC); existing files are never overwritten.
func Create(dir, name string, now time.Time) (Migration, error) {
	slug := Slugify(name)
	if slug == "" {
		return Migration{}, alerr.New(alerr.ErrConfigInvalid, "migration name must contain letters or digits").
			With("name", name)
	}

	// A leading all-digit segment would be read back as part of the version.
	if first, _, _ := strings.Cut(slug, "_"); isDigits(first) {
		slug = "m_" + slug
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Migration{}, alerr.Wrap(alerr.ErrCatalogInvalid, err, "failed to create migrations directory").
			With("path", dir)
	}

	m := Migration{
		Version: now.UTC().Format(VersionLayout),
		Name:    slug,
	}
	m.UpPath = filepath.Join(dir, m.ID()+upSuffix)
	m.DownPath = filepath.Join(dir, m.ID()+downSuffix)

	existing, err := Load(dir)
	if err != nil {
		return Migration{}, err
	}
	if other, ok := existing.Get(m.Version); ok {
		return Migration{}, alerr.New(alerr.ErrDuplicateVersion, "a migration with this version already exists").
			With("version", m.Version).
			With("existing", other.ID())
	}

	header := fmt.Sprintf("-- %s (%s)\n", m.ID(), "%s")
	if err := writeNew(m.UpPath, fmt.Sprintf(header, "up")); err != nil {
		return Migration{}, err
	}
	if err := writeNew(m.DownPath, fmt.Sprintf(header, "down")); err != nil {
		_ = os.Remove(m.UpPath)
		return Migration{}, err
	}

	return m, nil
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return alerr.Wrap(alerr.ErrCatalogInvalid, err, "failed to create migration file").
			WithFile(path)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return alerr.Wrap(alerr.ErrCatalogInvalid, err, "failed to write migration file").
			WithFile(path)
	}
	return f.Close()
}

// Slugify lowercases name and collapses every run of non-alphanumeric
// characters into a single underscore. "Add Users-Table" -> "add_users_table".
func Slugify(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSep = true
	}
	return b.String()
}
