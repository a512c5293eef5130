// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of refine is running.
//
// Release builds stamp the version with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/refine/lib/version.Version=v0.3.0" ./cmd/refine
//
// The commit and build time come from the VCS stamp the Go toolchain
// embeds, so they need no flags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the release version. Set with -ldflags for releases.
var Version = "0.1.0-dev"

// Build is what the running binary knows about itself.
type Build struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Modified bool   `json:"modified"`
	Time     string `json:"time"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

// Current reads the build information of the running binary.
func Current() Build {
	build := Build{
		Version:  Version,
		Commit:   "unknown",
		Time:     "unknown",
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return build
	}
	return fromSettings(build, info.Settings)
}

func fromSettings(build Build, settings []debug.BuildSetting) Build {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			build.Commit = setting.Value
			if len(build.Commit) > 12 {
				build.Commit = build.Commit[:12]
			}
		case "vcs.modified":
			build.Modified = setting.Value == "true"
		case "vcs.time":
			build.Time = setting.Value
		}
	}
	return build
}

// Short is the one-line form: "0.1.0-dev (3f2a9c1b7d0e, 2026-03-02T09:30:00Z)".
func (build Build) Short() string {
	dirty := ""
	if build.Modified {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", build.Version, build.Commit, dirty, build.Time)
}

// String adds the toolchain and platform to Short.
func (build Build) String() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s", build.Short(), build.Go, build.Platform)
}
