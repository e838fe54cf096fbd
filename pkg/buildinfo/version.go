// Package buildinfo holds version information stamped in at link time:
//
//	go build -ldflags "-X github.com/DavidWHallberg/iotlab-topologies/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/DavidWHallberg/iotlab-topologies/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/toposelect
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the build information on one line.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\n", String())
}

// UserAgent identifies the binary in outgoing requests and server headers.
func UserAgent() string {
	return "toposelect/" + Version
}
