// Package version exposes the build identity of a streamkit binary.
//
// Version, commit, and build date are stamped at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/skillsenselab/streamkit/version.Version=v0.3.0"
//
// Anything not stamped is resolved from the VCS metadata the Go toolchain
// embeds in the binary.
package version
