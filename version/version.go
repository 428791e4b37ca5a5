// Package version reports build metadata injected at link time.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Protocol is the bridge protocol revision spoken with the host plugin.
// Bump it whenever a method or payload changes incompatibly.
const Protocol = 1

// Set with -ldflags "-X github.com/grovetools/framefill/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Protocol  int    `json:"protocol"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build information of this binary.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		Protocol:  Protocol,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short is the version with an abbreviated commit, e.g. "v0.4.1 (3f2a9c1)".
func (i Info) Short() string {
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit == "" || commit == "none" {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, commit)
}

// String lists every field, one per line.
func (i Info) String() string {
	var b strings.Builder
	for _, kv := range [][2]string{
		{"Version", i.Version},
		{"Commit", i.Commit},
		{"Built", i.BuildDate},
		{"Protocol", fmt.Sprint(i.Protocol)},
		{"Go", i.GoVersion},
		{"Platform", i.Platform},
	} {
		fmt.Fprintf(&b, "%-10s %s\n", kv[0]+":", kv[1])
	}
	return strings.TrimRight(b.String(), "\n")
}
