// Package version reports build information for the docrag binary.
// Release builds set the variables with -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/docrag-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/docrag-go/internal/version.Commit=abc1234"
//
// Builds without ldflags fall back to the module information embedded by the
// Go toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version, "dev" for local builds.
	Version = "dev"
	// Commit is the short git SHA the binary was built from.
	Commit = "unknown"
	// BuildDate is the UTC build date in RFC3339.
	BuildDate = "unknown"
)

// String renders the version line printed by `docrag version`.
func String() string {
	v, c := Version, Commit
	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
		if c == "unknown" {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					c = s.Value[:7]
				}
			}
		}
	}
	return fmt.Sprintf("docrag %s (commit: %s, built: %s, %s)", v, c, BuildDate, runtime.Version())
}
