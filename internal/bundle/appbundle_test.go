package bundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestWrapApp verifies the .app skeleton, the relocated payload and the
// generated metadata.
func TestWrapApp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	payload := filepath.Join(root, "merged")
	require.NoError(t, os.MkdirAll(payload, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(payload, "ScriptCompilerBridge"), []byte("launcher"), 0o755))

	icon := filepath.Join(root, "app.icns")
	require.NoError(t, os.WriteFile(icon, []byte("icns"), 0o644))

	b := &Bundle{Dir: payload, Launchers: []string{"ScriptCompilerBridge"}}

	appDir, err := WrapApp(context.Background(), b, AppBundleOptions{
		Name:       "ScriptCompiler Bridge",
		Identifier: "com.telemacy.scriptcompiler-bridge",
		Version:    "2.3.0",
		Executable: "ScriptCompilerBridge",
		Icon:       icon,
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "ScriptCompiler Bridge.app"), appDir)

	// Payload moved under Contents/MacOS and the Bundle tracks the new location.
	require.Equal(t, filepath.Join(appDir, "Contents", "MacOS"), b.Dir)
	_, err = os.Stat(filepath.Join(b.Dir, "ScriptCompilerBridge"))
	require.NoError(t, err)

	// Icon landed in Resources.
	_, err = os.Stat(filepath.Join(appDir, "Contents", "Resources", "app.icns"))
	require.NoError(t, err)

	plist, err := os.ReadFile(filepath.Join(appDir, "Contents", "Info.plist"))
	require.NoError(t, err)

	text := string(plist)
	require.Contains(t, text, "<key>CFBundleIdentifier</key>")
	require.Contains(t, text, "<string>com.telemacy.scriptcompiler-bridge</string>")
	require.Contains(t, text, "<string>2.3.0</string>")

	// Menu-bar-only presentation is declared, not implemented here.
	require.Contains(t, text, "<key>LSUIElement</key>")
	require.Contains(t, text, "<true/>")
}
