// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version is the release version of vac.
var Version = "0.1.0-dev"

// Build stamps, normally injected with
//
//	-ldflags "-X github.com/GlobalSushrut/connector-oss/lib/version.Commit=..."
//
// Empty stamps fall back to the VCS settings the go tool records.
var (
	Commit    string
	Modified  string // "true" when built from a dirty tree
	BuildTime string
)

// stamp returns the ldflags value if set, else the named build setting,
// else "unknown".
func stamp(value, setting string) string {
	if value != "" {
		return value
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == setting && s.Value != "" {
				return s.Value
			}
		}
	}
	return "unknown"
}

// Info is the one-line version: "0.1.0-dev (abc1234-dirty, 2026-10-14T00:00:00Z)".
func Info() string {
	commit := stamp(Commit, "vcs.revision")
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if stamp(Modified, "vcs.modified") == "true" {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, stamp(BuildTime, "vcs.time"))
}

// Full adds the toolchain and platform to Info.
func Full() string {
	var b strings.Builder
	b.WriteString(Info())
	fmt.Fprintf(&b, "\n  Go: %s", runtime.Version())
	fmt.Fprintf(&b, "\n  Platform: %s/%s", runtime.GOOS, runtime.GOARCH)
	return b.String()
}
