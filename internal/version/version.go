// Package version provides the build version, set with
// -ldflags "-X github.com/effective-security/p11conform/internal/version.GitVersion=v1.2.3"
package version

import (
	"fmt"
	"runtime"
)

// GitVersion is the version tag of the build
var GitVersion = "v0.0.0"

// GitHash is the commit of the build
var GitHash = "dev"

// Info describes the build
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Runtime string `json:"runtime"`
}

// String returns version in v1.2.3-hash form
func (i Info) String() string {
	return fmt.Sprintf("%s-%s", i.Version, i.Commit)
}

// Current returns the version of the build
func Current() Info {
	return Info{
		Version: GitVersion,
		Commit:  GitHash,
		Runtime: runtime.Version(),
	}
}
