package version

// Version is defined here only; everything else reads it from this package.
const (
	Major = 0
	Minor = 3
	Patch = 1

	// Version without the v prefix
	Version = "0.3.1"
	// VersionWithPrefix with the v prefix
	VersionWithPrefix = "v0.3.1"
)

// Set through -ldflags at build time.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func GetVersion() string {
	return Version
}

func GetVersionWithPrefix() string {
	return VersionWithPrefix
}

// SetBuildInfo overrides the ldflags values.
func SetBuildInfo(buildTime, gitCommit string) {
	BuildTime = buildTime
	GitCommit = gitCommit
}

// GetFullVersionInfo returns the version with build time and commit.
func GetFullVersionInfo() string {
	return VersionWithPrefix + " (built at " + BuildTime + ", commit " + GitCommit + ")"
}
