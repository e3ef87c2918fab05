package version

var (
	// Version is the release tag of the storagewatch binary, set with -ldflags.
	Version = "dev"
	// Commit is the source revision, set with -ldflags.
	Commit = "unknown"
	// BuildDate is the build timestamp, set with -ldflags.
	BuildDate = "unknown"
)
