package version

import "runtime/debug"

// Version information for lineidx. BuildDate and GitCommit are set at build
// time:
//
//	go build -ldflags "-X github.com/standardbeagle/lineidx/internal/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "0.1.0"
	BuildDate = "development"
	GitCommit = "unknown"
)

// Info returns version information as a string
func Info() string {
	return Version
}

// FullInfo returns detailed version information. When GitCommit was not
// set at build time the VCS revision recorded by the Go toolchain is used.
func FullInfo() string {
	commit := GitCommit
	if commit == "unknown" {
		if rev := vcsRevision(); rev != "" {
			commit = rev
		}
	}
	return Version + " (commit: " + commit + ", built: " + BuildDate + ")"
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
