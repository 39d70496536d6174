package context

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// The semantic version of the application. This can be overridden at build
// time with -ldflags "-X go.hackfix.me/stow/app/context.version=1.2.3".
var version = "0.0.0"

// VersionInfo stores app version information.
type VersionInfo struct {
	Semantic string
	Commit   string
	Dirty    bool
	goInfo   string
}

// GetVersion returns the app version, including VCS information from the Go
// runtime, if the binary was built with it.
func GetVersion() *VersionInfo {
	vi := &VersionInfo{
		Semantic: strings.TrimPrefix(version, "v"),
		goInfo:   fmt.Sprintf("%s, %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return vi
	}

	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			vi.Commit = s.Value[:min(len(s.Value), 10)]
		case "vcs.modified":
			vi.Dirty = s.Value == "true"
		}
	}

	return vi
}

// String returns the full version information.
func (vi *VersionInfo) String() string {
	if vi.Commit == "" {
		return fmt.Sprintf("v%s (%s)", vi.Semantic, vi.goInfo)
	}

	var dirty string
	if vi.Dirty {
		dirty = "-dirty"
	}

	return fmt.Sprintf("v%s (commit/%s%s, %s)", vi.Semantic, vi.Commit, dirty, vi.goInfo)
}
