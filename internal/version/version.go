// Package version reports the uiflow build, stamped at link time with
// -ldflags "-X github.com/gotrs-io/uiflow/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, or the branch for untagged builds
	Version = "dev"

	// GitCommit is the short commit SHA
	GitCommit = "unknown"

	BuildDate = "unknown"
)

// Info is the structured build description
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetInfo returns the current build info
func GetInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// String formats as "v1.2.0 (abc1234)"
func String() string {
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}

// Full adds the build date and toolchain
func Full() string {
	i := GetInfo()
	return fmt.Sprintf("uiflow %s (%s) built %s with %s", i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}
