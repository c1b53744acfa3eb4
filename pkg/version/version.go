// Package version holds the build version of sitenav.
package version

import "runtime/debug"

// Version is set via ldflags at build time:
//
//	go build -ldflags "-X github.com/vanderheijden86/sitenav/pkg/version.Version=v1.2.3"
var Version = "dev"

// String returns Version, falling back to the module version recorded by
// `go install` when no ldflags were given.
func String() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
