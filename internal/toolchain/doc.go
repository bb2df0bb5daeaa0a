// Package toolchain wraps invocation of external build tools (the bundler,
// installer compilers, disk-image utilities) with PATH lookup, remediation
// messages for missing tools and verbatim stderr propagation on failure.
package toolchain
