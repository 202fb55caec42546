// Package observability wires structured logging and Prometheus metrics for
// migration runs.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hlop3z/pgledger/internal/alerr"
)

// Component is attached to every log line.
const Component = "pgledger"

// NewLogger returns a JSON or text logger writing to w with the component
// field attached. A nil w means stderr so stdout stays reserved for reports.
func NewLogger(format, level string, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, alerr.New(alerr.ErrConfigInvalid, "unknown log format").
			With("format", format).
			WithHelp("use 'json' or 'text'")
	}

	return slog.New(handler).With("component", Component), nil
}

// ParseLevel maps debug/info/warn/error to a slog level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, alerr.New(alerr.ErrConfigInvalid, "unknown log level").
		With("level", level).
		WithHelp("use one of debug, info, warn, error")
}

// WithRun attaches the run id of one Up/Down invocation.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	if logger == nil || runID == "" {
		return logger
	}
	return logger.With("run_id", runID)
}

// WithMigration attaches the migration being processed.
func WithMigration(logger *slog.Logger, version, name, direction string) *slog.Logger {
	if logger == nil {
		return logger
	}
	return logger.With("version", version, "name", name, "direction", direction)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
