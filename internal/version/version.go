// Package version exposes build information stamped in at link time.
package version

import (
	"fmt"
	"runtime"
)

// Overridden via -ldflags at release builds.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Short returns just the version number.
func Short() string {
	return Version
}

// Full returns the one-line form printed by the version command.
func Full() string {
	return fmt.Sprintf("Heimdall %s (%s) built %s, Go %s %s/%s",
		Version, GitCommit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Info is the structured form served by the control API.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns structured version information.
func GetInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
