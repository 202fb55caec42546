package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hlop3z/pgledger/internal/alerr"
)

// Context keys rendered elsewhere or too noisy for the detail block.
var hiddenKeys = map[string]bool{
	"helps": true,
	"sql":   true,
}

// FormatError renders err for the terminal:
//
//	error[E3001]: migration 20240101_120000_first failed (up)
//	   |
//	   | direction: up
//	   | version: 20240101_120000
//	   |
//	note: cause: pq: relation "missing" does not exist
//	help: ...
//
// The first *alerr.Error in the chain supplies code, context and help.
// Other errors are printed as "error: message".
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var ae *alerr.Error
	if !errors.As(err, &ae) {
		return Error("error") + ": " + err.Error() + "\n"
	}

	var b strings.Builder
	b.WriteString(Error("error"))
	b.WriteString("[")
	b.WriteString(Code(string(ae.GetCode())))
	b.WriteString("]: ")
	b.WriteString(ae.GetMessage())
	b.WriteString("\n")

	ctx := ae.GetContext()
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		if !hiddenKeys[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	if len(keys) > 0 {
		b.WriteString("   " + Pipe() + "\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "   %s %s: %v\n", Pipe(), k, ctx[k])
		}
	}

	if cause := ae.GetCause(); cause != nil {
		b.WriteString("   " + Pipe() + "\n")
		b.WriteString(Note("note"))
		b.WriteString(": cause: ")
		b.WriteString(cause.Error())
		b.WriteString("\n")
	}

	for _, help := range ae.Helps() {
		b.WriteString(FormatHelp(help))
	}

	return b.String()
}

// FormatWarning formats a warning line.
func FormatWarning(msg string) string {
	return Warning("warning") + ": " + msg + "\n"
}

// FormatHelp formats a help line.
func FormatHelp(msg string) string {
	return Help("help") + ": " + msg + "\n"
}

// FormatSuccess formats a success line.
func FormatSuccess(msg string) string {
	return Success("success") + ": " + msg + "\n"
}
