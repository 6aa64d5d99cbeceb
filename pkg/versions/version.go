// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package versions provides version information for the gateway binary.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

const unknownStr = "unknown"

// Build-time values, injected via ldflags by the release pipeline.
var (
	// Version is the release version, or "dev" for local builds.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = unknownStr

	// BuildDate is the RFC 3339 build timestamp.
	BuildDate = unknownStr
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo assembles the binary's version information. Local builds
// without injected values fall back to module build info, rendering the
// version as "build-<short commit>".
func GetVersionInfo() VersionInfo {
	version := Version
	commit := Commit
	buildDate := BuildDate

	if version == "dev" {
		// Reported commit and date stay as injected; the revision from
		// module build info only shapes the synthetic version string.
		short := commit
		if short == unknownStr {
			if info, ok := debug.ReadBuildInfo(); ok {
				for _, setting := range info.Settings {
					if setting.Key == "vcs.revision" && setting.Value != "" {
						short = setting.Value
					}
				}
			}
		}
		if len(short) > 8 {
			short = short[:8]
		}
		version = "build-" + short
	}

	// Render the build date in a human-friendly form; leave it alone if
	// it is not an RFC 3339 timestamp.
	if t, err := time.Parse(time.RFC3339, buildDate); err == nil {
		buildDate = t.UTC().Format("2006-01-02 15:04:05 UTC")
	}

	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
