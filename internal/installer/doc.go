// Package installer turns the merged bundle into a platform distributable:
// a self-extracting installer on Windows (generated Inno Setup source,
// compiled with ISCC) and a disk image on macOS (rich layout when the tool
// is available, minimal raw conversion otherwise).
//
// The two paths are independent; they share nothing beyond the bundle
// directory and the propagated version string.
package installer
