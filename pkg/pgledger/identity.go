package pgledger

import (
	"os"
	"os/user"
)

// currentIdentity returns the OS user name for the applied_by column.
func currentIdentity() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	for _, env := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return "unknown"
}
