// Package version exposes build and version metadata.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X splusls/internal/version.Version=..." at build time.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

func GetVersion() string {
	return Version
}

func GetFullVersionInfo(program string) string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s)",
		program, Version, GitCommit, BuildDate, GoVersion)
}
