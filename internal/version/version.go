// Package version carries build identification, populated via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build identification for CLI output.
func String() string {
	return fmt.Sprintf("safety.report %s (%s, built %s)", Version, GitSHA, BuildTime)
}
