// Package version carries build identification stamped in at link time:
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.0 ..."
//
// Unstamped builds report "dev".
package version

import "fmt"

var (
	// Version is the release tag.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String renders the stamped values in the form printed by the
// commands' -version flag.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}
