// Package version exposes build-time metadata of the packager binary.
//
// This is the tool's own version, injected via ldflags. The version of the
// application being packaged is resolved separately by the appinfo package.
package version
