// Package version reports the build metadata injected with -ldflags, e.g.
//
//	-X lawchat/pkg/version.Version=1.4.0 -X lawchat/pkg/version.Commit=$(git rev-parse HEAD)
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	GoVersion = runtime.Version()
)

const shortCommit = 7

// Platform is GOOS/GOARCH.
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

func release() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

func commit() string {
	if Commit == "" || Commit == "none" {
		return ""
	}
	if len(Commit) > shortCommit {
		return Commit[:shortCommit]
	}
	return Commit
}

// Summary is the version plus the short commit when one was injected.
func Summary() string {
	if c := commit(); c != "" {
		return fmt.Sprintf("%s (%s)", release(), c)
	}
	return release()
}

// Line formats the --version output for the named binary.
func Line(binary string) string {
	line := fmt.Sprintf("%s %s %s %s", binary, Summary(), Platform(), GoVersion)
	if Date != "" && Date != "unknown" {
		line += " built " + Date
	}
	return line
}

// UserAgent identifies binary in HTTP requests, e.g. "lawchat/1.4.0 (linux/amd64)".
func UserAgent(binary string) string {
	return fmt.Sprintf("%s/%s (%s)", binary, release(), Platform())
}
