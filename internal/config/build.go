package config

// Set with -ldflags "-X growthwatch/internal/config.version=..." (and commit,
// buildTime) by the release build. Local builds keep the placeholders.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo snapshots the linker-provided metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
}

// String formats the metadata as "version (commit, time)" for startup logs.
func (b BuildInfo) String() string {
	return b.Version + " (" + b.Commit + ", " + b.BuildTime + ")"
}
