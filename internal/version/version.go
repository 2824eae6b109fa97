// Package version provides a single source of truth for the simulator version.
// Version can be set at build time via ldflags: -ldflags '-X github.com/invisible-tech/incident-sim/internal/version.Version=1.2.3'
package version

// Version is set at build time; default for local builds.
var Version = "0.1.0"

// UserAgent is the User-Agent sent by outbound clients.
func UserAgent() string {
	return "incident-sim/" + Version
}
