// Package buildinfo exposes version metadata stamped at link time.
package buildinfo

import (
	"runtime/debug"
	"strings"
	"time"
)

// Linker-overridable build metadata.
var (
	Version    = "0.1.0"
	CommitHash = ""
	BuildDate  = ""
)

// Info is normalized build metadata for display.
type Info struct {
	Version    string
	CommitHash string
	BuildDate  string
}

// Current returns linker overrides, falling back to the VCS settings recorded by
// the Go toolchain.
func Current() Info {
	info := Info{
		Version:    strings.TrimSpace(Version),
		CommitHash: strings.TrimSpace(CommitHash),
		BuildDate:  strings.TrimSpace(BuildDate),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if (info.Version == "" || info.Version == "0.1.0") && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		settings := make(map[string]string, len(bi.Settings))
		for _, s := range bi.Settings {
			settings[s.Key] = strings.TrimSpace(s.Value)
		}
		if info.CommitHash == "" {
			info.CommitHash = settings["vcs.revision"]
			if info.CommitHash != "" && strings.EqualFold(settings["vcs.modified"], "true") {
				info.CommitHash += "-dirty"
			}
		}
		if info.BuildDate == "" {
			info.BuildDate = settings["vcs.time"]
		}
	}

	if parsed, err := time.Parse(time.RFC3339, info.BuildDate); err == nil {
		info.BuildDate = parsed.UTC().Format("2006-01-02 15:04:05 UTC")
	}
	info.Version = orUnknown(info.Version)
	info.CommitHash = orUnknown(info.CommitHash)
	info.BuildDate = orUnknown(info.BuildDate)
	return info
}

// UserAgent is sent with every API request.
func (i Info) UserAgent() string {
	return "oxyadmin/" + i.Version
}

func (i Info) String() string {
	commit := i.CommitHash
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return i.Version + " (" + commit + ", " + i.BuildDate + ")"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
