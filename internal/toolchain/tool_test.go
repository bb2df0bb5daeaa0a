package toolchain

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLookupMissingTool verifies missing tools map to ErrToolMissing with remediation text.
func TestLookupMissingTool(t *testing.T) {
	t.Parallel()

	_, err := Lookup("definitely-not-installed-anywhere", "install it from example.com")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrToolMissing))
	require.Contains(t, err.Error(), "install it from example.com")
}

// TestRunCapturesOutput checks stdout capture on success and stderr propagation on failure.
func TestRunCapturesOutput(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}

	ctx := context.Background()

	out, err := Run(ctx, t.TempDir(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	require.Contains(t, string(out), "hello")

	_, err = Run(ctx, t.TempDir(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")
}
