package pgledger

import (
	"errors"
	"fmt"

	"github.com/hlop3z/pgledger/internal/alerr"
)

// Sentinel errors for common error conditions.
// Use errors.Is() to check for these errors.
var (
	// ErrMissingDatabaseURL is returned when no database URL is provided.
	ErrMissingDatabaseURL = errors.New("pgledger: database URL required")

	// ErrConnectionFailed is returned when the database cannot be reached.
	ErrConnectionFailed = errors.New("pgledger: connection failed")

	// ErrMigrationFailed is returned when a migration script fails.
	ErrMigrationFailed = errors.New("pgledger: migration failed")
)

// MigrationError reports the migration whose script failed. The transaction
// was rolled back: neither the schema change nor the ledger row exists.
type MigrationError struct {
	Version   string
	Name      string
	Direction string // "up" or "down"

	// Cause is the underlying error; it wraps the driver error (e.g. *pq.Error).
	Cause error
}

// Error returns a formatted error message.
func (e *MigrationError) Error() string {
	id := e.Version
	if e.Name != "" {
		id += "_" + e.Name
	}
	return fmt.Sprintf("pgledger: migration %s failed (%s): %v", id, e.Direction, rootCause(e.Cause))
}

// Unwrap returns the underlying cause error.
func (e *MigrationError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
func (e *MigrationError) Is(target error) bool {
	return target == ErrMigrationFailed
}

// ConnectionError reports a failed connection attempt.
type ConnectionError struct {
	// URL is the database URL with the password redacted.
	URL   string
	Cause error
}

// Error returns a formatted error message.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("pgledger: failed to connect to %s: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// IsLockError reports whether err means another runner holds the migration lock.
func IsLockError(err error) bool {
	return alerr.Is(err, alerr.ErrLockNotAcquired)
}

// IsExecutionError reports whether err is a failed migration script.
func IsExecutionError(err error) bool {
	var me *MigrationError
	return errors.As(err, &me)
}

// IsMissingDownError reports whether a rollback stopped on a missing down script.
func IsMissingDownError(err error) bool {
	return alerr.Is(err, alerr.ErrDownFileMissing)
}

// IsConfigError reports whether err is a configuration problem detected
// before any database work, such as an unsupported URL scheme.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingDatabaseURL) ||
		alerr.Is(err, alerr.ErrConfigInvalid) ||
		alerr.Is(err, alerr.ErrUnsupportedScheme)
}

// IsNotFoundError reports whether a target version is unknown.
func IsNotFoundError(err error) bool {
	return alerr.Is(err, alerr.ErrMigrationNotFound)
}

// rootCause returns the innermost error of a wrap chain.
func rootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return err
}

// wrapMigrationError converts an executor failure into a *MigrationError.
// Other errors (missing down file, infrastructure) pass through unchanged.
func wrapMigrationError(err error, version, name, direction string) error {
	if err == nil || alerr.GetErrorCode(err) != alerr.ErrMigrationFailed {
		return err
	}
	return &MigrationError{
		Version:   version,
		Name:      name,
		Direction: direction,
		Cause:     err,
	}
}
