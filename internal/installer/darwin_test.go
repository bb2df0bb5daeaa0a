package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTool writes a shell script; when artifact is non-empty the script
// creates it, otherwise the script fails.
func fakeTool(t *testing.T, dir, name, artifact string) string {
	t.Helper()

	var body string
	if artifact == "" {
		body = "#!/bin/sh\necho 'layout error' >&2\nexit 1\n"
	} else {
		body = fmt.Sprintf("#!/bin/sh\ntouch %s\n", artifact)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))

	return path
}

func testDarwinOptions(t *testing.T) DarwinOptions {
	t.Helper()

	dir := t.TempDir()
	appDir := filepath.Join(dir, "ScriptCompiler Bridge.app")
	require.NoError(t, os.MkdirAll(appDir, 0o755))

	return DarwinOptions{
		AppDir:       appDir,
		OutputDir:    dir,
		Version:      "2.3.0",
		VolumeName:   "ScriptCompiler Bridge",
		ArtifactBase: "ScriptCompilerBridge",
	}
}

func requireSkipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
}

// TestPackageDarwinRichPath uses the layout tool when it succeeds.
func TestPackageDarwinRichPath(t *testing.T) {
	t.Parallel()
	requireSkipOnWindows(t)

	opts := testDarwinOptions(t)
	artifact := filepath.Join(opts.OutputDir, "ScriptCompilerBridge-2.3.0.dmg")

	opts.RichTool = fakeTool(t, opts.OutputDir, "create-dmg-fake", artifact)
	opts.FallbackTool = fakeTool(t, opts.OutputDir, "hdiutil-fake", "")

	got, err := PackageDarwin(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, artifact, got)
}

// TestPackageDarwinFallbackOnMissingRichTool still produces exactly one image
// when the cosmetic tool is absent.
func TestPackageDarwinFallbackOnMissingRichTool(t *testing.T) {
	t.Parallel()
	requireSkipOnWindows(t)

	opts := testDarwinOptions(t)
	artifact := filepath.Join(opts.OutputDir, "ScriptCompilerBridge-2.3.0.dmg")

	opts.RichTool = "definitely-not-create-dmg"
	opts.FallbackTool = fakeTool(t, opts.OutputDir, "hdiutil-fake", artifact)

	got, err := PackageDarwin(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, artifact, got)
}

// TestPackageDarwinFallbackOnRichFailure falls back when the layout tool errors.
func TestPackageDarwinFallbackOnRichFailure(t *testing.T) {
	t.Parallel()
	requireSkipOnWindows(t)

	opts := testDarwinOptions(t)
	artifact := filepath.Join(opts.OutputDir, "ScriptCompilerBridge-2.3.0.dmg")

	opts.RichTool = fakeTool(t, opts.OutputDir, "create-dmg-fake", "")
	opts.FallbackTool = fakeTool(t, opts.OutputDir, "hdiutil-fake", artifact)

	got, err := PackageDarwin(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, artifact, got)
}

// TestPackageDarwinFallbackMissing surfaces ErrInstallerToolMissing only when
// even the raw converter is unavailable.
func TestPackageDarwinFallbackMissing(t *testing.T) {
	t.Parallel()

	opts := testDarwinOptions(t)
	opts.RichTool = "definitely-not-create-dmg"
	opts.FallbackTool = "definitely-not-hdiutil"

	_, err := PackageDarwin(context.Background(), opts)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInstallerToolMissing))
}
