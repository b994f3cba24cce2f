package version

// Version is the application version, set via build-time ldflags:
// go build -ldflags "-X github.com/probeforge/metricgen/internal/version.Version=v1.2.0".
var Version = "unknown"

// Build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)
