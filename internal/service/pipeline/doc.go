// Package pipeline orchestrates the full release-packaging sequence:
// clean, provision the external media-processor binary, assemble the bridge
// and tracker executables, merge them into one bundle, resolve the release
// version and produce the platform installer.
//
// The pipeline is strictly sequential and fail-fast. There is no partial
// resume: every run removes the previous output tree first, so an aborted
// run is simply rebuilt from scratch.
package pipeline
