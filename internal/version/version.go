package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Build metadata, set with -ldflags "-X imgseek/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// Info returns the short version string.
func Info() string {
	return Version
}

// Full returns the version with an abbreviated commit when one is known.
func Full() string {
	info := Info()
	if len(GitCommit) >= 7 && GitCommit != "unknown" && !strings.Contains(info, GitCommit[:7]) {
		info += fmt.Sprintf(" (%s)", GitCommit[:7])
	}
	return info
}

// BuildInfo is the structured form printed by `imgseek version --output`.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// GetBuildInfo returns structured build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Info(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
}

// UserAgent is sent on every request to the search backend.
func UserAgent() string {
	return fmt.Sprintf("imgseek/%s (%s/%s)", Info(), runtime.GOOS, runtime.GOARCH)
}
