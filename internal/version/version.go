// Package version holds build metadata injected via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent is the default User-Agent for outbound image requests.
func UserAgent() string {
	if Commit == "unknown" || len(Commit) < 7 {
		return "flagdeck/" + Version
	}
	return "flagdeck/" + Version + " (" + Commit[:7] + ")"
}
