// Package version reports the odsync build. Release builds set the variables
// with -ldflags "-X github.com/opendatabs/odsync/internal/version.Version=...",
// other builds fall back to the Go build info.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	devVersion      = "0.1.0-dev"
	unknownRevision = "HEAD"
	shortRevision   = 12
)

var (
	AppName   = "odsync"
	Version   = devVersion
	Revision  = unknownRevision
	BuildDate = ""
)

// fill copies the module version and VCS stamps of info into the variables
// that ldflags left at their defaults.
func fill(info *debug.BuildInfo) {
	if info == nil {
		return
	}

	if Version == devVersion || Version == "" {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			Version = strings.TrimPrefix(v, "v")
		}
	}

	var rev, vcsTime string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		case "vcs.time":
			vcsTime = s.Value
		}
	}

	if (Revision == unknownRevision || Revision == "") && rev != "" {
		if len(rev) > shortRevision {
			rev = rev[:shortRevision]
		}
		if dirty {
			rev += "-dirty"
		}
		Revision = rev
	}
	if BuildDate == "" {
		BuildDate = vcsTime
	}
}

// UserAgent is sent with every catalog request - `odsync/0.1.0 (linux; amd64)`
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s; %s)", AppName, Version, runtime.GOOS, runtime.GOARCH)
}

// Detailed - `0.1.0 (5e23a4; go1.24.1; linux/amd64; 2026-01-01T00:00:00Z)`
func Detailed() string {
	return fmt.Sprintf("%s (%s; %s; %s/%s; %s)", Version, Revision, runtime.Version(), runtime.GOOS, runtime.GOARCH, BuildDate)
}

func init() {
	info, _ := debug.ReadBuildInfo()
	fill(info)
	if BuildDate == "" {
		BuildDate = time.Now().UTC().Format(time.RFC3339)
	}
}
