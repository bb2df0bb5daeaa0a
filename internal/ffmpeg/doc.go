// Package ffmpeg provisions the external media-processor binary the bridge
// embeds into its bundle: download the platform release archive, extract it,
// locate the binary inside the versioned directory the archive unpacks to,
// and cache it at a canonical path. Re-running with a warm cache is a no-op.
package ffmpeg
