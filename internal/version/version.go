package version

import "runtime"

// Set at build time via -ldflags "-X github.com/rbright/lrpmprobe/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return "lrpmprobe " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}
