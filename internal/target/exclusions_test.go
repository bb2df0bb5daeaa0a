package target

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExclusionsGlobalOnly ensures a plain target receives exactly the global set.
func TestExclusionsGlobalOnly(t *testing.T) {
	t.Parallel()

	got := Exclusions(Target{Name: "plain"})
	require.True(t, sort.StringsAreSorted(got))
	require.Contains(t, got, "torch")
	require.Contains(t, got, "pytest")
	require.NotContains(t, got, "fastapi")
}

// TestExclusionsOverlay verifies per-target additions merge with the global set
// without duplicates and without mutating it.
func TestExclusionsOverlay(t *testing.T) {
	t.Parallel()

	tracker := Tracker()

	got := Exclusions(tracker)
	require.Contains(t, got, "fastapi")
	require.Contains(t, got, "pystray")
	require.Contains(t, got, "torch")

	// Duplicates collapse.
	dup := Target{Name: "dup", ExtraExclusions: []string{"torch", "torch"}}
	require.Equal(t, 1, count(Exclusions(dup), "torch"))

	// Caller mutation of the returned slice does not leak into later calls.
	first := Exclusions(tracker)
	first[0] = "mutated"
	require.NotContains(t, Exclusions(tracker), "mutated")
}

// TestBridgeDescriptor spot-checks the bridge target wiring.
func TestBridgeDescriptor(t *testing.T) {
	t.Parallel()

	b := Bridge("/cache/ffmpeg")
	require.Equal(t, BridgeName, b.Name)
	require.True(t, b.Windowed)
	require.NotEmpty(t, b.HiddenImports)

	var ffmpegEmbedded bool

	for _, r := range b.Resources {
		if r.Source == "/cache/ffmpeg" {
			ffmpegEmbedded = true

			require.Equal(t, "ffmpeg", r.Dest)
		}
	}

	require.True(t, ffmpegEmbedded)
}

func count(haystack []string, needle string) int {
	n := 0

	for _, s := range haystack {
		if s == needle {
			n++
		}
	}

	return n
}
