// Package bundle merges the assembled per-target trees into a single output
// tree with a shared runtime, and on macOS wraps that tree in an application
// bundle with its metadata.
package bundle
