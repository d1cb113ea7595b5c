// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package mdip

import (
	"fmt"
	"runtime"

	"github.com/maloquacious/semver"
)

var (
	version = semver.Version{
		Major: 1,
		Minor: 0,
		Patch: 0,
		Build: semver.Commit(),
	}
)

func Version() semver.Version {
	return version
}

// BuildInfo describes the running binary for the settings page and the
// version command.
type BuildInfo struct {
	Version   string
	GoVersion string
	OS        string
	Arch      string
}

func Build() BuildInfo {
	return BuildInfo{
		Version:   version.String(),
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func (b BuildInfo) Platform() string {
	return b.OS + "/" + b.Arch
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("mdip %s (%s %s)", b.Version, b.GoVersion, b.Platform())
}
