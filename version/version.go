package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time via -ldflags, e.g.
//
//	go build -ldflags "-X .../version.Version=v0.3.0 -X .../version.Commit=$(git rev-parse --short HEAD)"
//
// When left unset, Get falls back to the VCS metadata the Go toolchain
// stamps into the binary.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info describes the build of the running binary.
type Info struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	Date      time.Time `json:"date"`
	GoVersion string    `json:"go_version"`
	Dirty     bool      `json:"dirty"`
}

// Get resolves build information from the ldflags variables, falling back
// to debug.ReadBuildInfo for anything not stamped.
func Get() Info {
	info := Info{
		Version: Version,
		Commit:  Commit,
	}
	if Date != "" {
		if t, err := time.Parse(time.RFC3339, Date); err == nil {
			info.Date = t
		}
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.Date.IsZero() {
					if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
						info.Date = t
					}
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			}
		}
	}
	return info
}

// Short returns "version-commit", or just the version when no commit is
// known. A dirty working tree is marked.
func Short() string {
	info := Get()
	switch {
	case info.Commit == "":
		return info.Version
	case info.Dirty:
		return fmt.Sprintf("%s-%s-dirty", info.Version, shortCommit(info.Commit))
	default:
		return fmt.Sprintf("%s-%s", info.Version, shortCommit(info.Commit))
	}
}

// Full returns a human-readable one-liner with version, commit, build date,
// and Go toolchain.
func Full() string {
	info := Get()
	var b strings.Builder
	b.WriteString(info.Version)
	if info.Commit != "" {
		fmt.Fprintf(&b, " (%s", shortCommit(info.Commit))
		if info.Dirty {
			b.WriteString("-dirty")
		}
		b.WriteString(")")
	}
	if !info.Date.IsZero() {
		fmt.Fprintf(&b, " built %s", info.Date.UTC().Format(time.RFC3339))
	}
	if info.GoVersion != "" {
		fmt.Fprintf(&b, " with %s", info.GoVersion)
	}
	return b.String()
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
