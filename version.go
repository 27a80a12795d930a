package respkv

import "strings"

// Version is the current version of respkv.
const Version = "0.3.0"

// GitCommit and BuildTime are set with -ldflags at build time
var (
	GitCommit string
	BuildTime string
)

// VersionString returns the version followed by the commit and build
// time when they are known, e.g. "0.3.0 (commit 1a2b3c4, built 2024-05-01)"
func VersionString() string {
	var extra []string
	if GitCommit != "" {
		extra = append(extra, "commit "+GitCommit)
	}
	if BuildTime != "" {
		extra = append(extra, "built "+BuildTime)
	}

	if len(extra) == 0 {
		return Version
	}
	return Version + " (" + strings.Join(extra, ", ") + ")"
}
