// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the full banner printed by `drai version`.
func String() string {
	return fmt.Sprintf("drai %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}

// UserAgent identifies drai on outbound HTTP requests.
func UserAgent() string {
	return "drai/" + Version
}
