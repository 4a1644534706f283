// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/garyellow/course-advisor/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/garyellow/course-advisor/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/garyellow/course-advisor/internal/buildinfo.BuildDate=...
var BuildDate = ""

// String formats the build metadata for logs and --version output.
func String() string {
	version := Version
	if version == "" {
		version = "dev"
	}
	if Commit != "" {
		version += " (" + Commit
		if BuildDate != "" {
			version += ", " + BuildDate
		}
		version += ")"
	}
	return version
}
