// Package version reports the socketd build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/socketd/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/socketd/internal/version.Commit=abc123"
//
// When unset they are filled from the module's VCS build info, else "dev".
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fromBuildInfo(info)
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills Version and Commit from module and VCS settings.
func fromBuildInfo(info *debug.BuildInfo) {
	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	var revision, modified, vcsTime string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			vcsTime = s.Value
		}
	}

	if Commit == "" && revision != "" {
		if len(revision) > 7 {
			revision = revision[:7]
		}
		Commit = revision
		if modified == "true" {
			Commit += "-dirty"
		}
	}

	// "2025-03-01T10:00:00Z" -> "dev-20250301"
	if Version == "" && len(vcsTime) >= 10 {
		Version = "dev-" + strings.ReplaceAll(vcsTime[:10], "-", "")
	}
}

// Full returns the version with its commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Detailed is Full plus the Go toolchain and platform, for `socketd version`.
func Detailed() string {
	return fmt.Sprintf("socketd %s\n  go: %s\n  platform: %s/%s",
		Full(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
